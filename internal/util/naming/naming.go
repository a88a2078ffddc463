package naming

import "fmt"

// ImageFile is the file name an image is downloaded to inside its
// local_download_path.
func ImageFile(image, format string) string {
	if format == "" {
		return image
	}
	return fmt.Sprintf("%s.%s", image, format)
}

// NIC is the guest interface name of the port at index. The first port is
// eth0 and is configured by the image itself.
func NIC(index int) string {
	return fmt.Sprintf("eth%d", index)
}

// InventoryPattern is the os.CreateTemp pattern for a playbook inventory.
func InventoryPattern(environment string) string {
	return fmt.Sprintf("vnfstack-%s-*.ini", environment)
}

// DownloadPattern is the os.CreateTemp pattern for a partial image download.
func DownloadPattern(image string) string {
	return fmt.Sprintf(".%s-*.part", image)
}
