package hcloud

import (
	"errors"
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/vnfstack/internal/cloud"
)

// isResourceLocked checks if an error indicates a resource is locked.
// Locked resources typically occur while another action runs on them.
// These errors are retryable.
func isResourceLocked(err error) bool {
	return isHCloudErrorCode(err,
		hcloud.ErrorCodeLocked,         // Item is locked (action running)
		hcloud.ErrorCodeConflict,       // Resource changed during request
		hcloud.ErrorCodeResourceLocked, // Resource locked (contact support)
		hcloud.ErrorCodeResourceUnavailable,
	)
}

// isInvalidParameter checks if an error indicates invalid parameters.
// These errors are fatal and should not be retried.
func isInvalidParameter(err error) bool {
	return isHCloudErrorCode(err,
		hcloud.ErrorCodeNotFound,
		hcloud.ErrorCodeInvalidInput,
		hcloud.ErrorCodeInvalidServerType,
	)
}

// isHCloudErrorCode checks if the error is an hcloud API error with one of the given codes.
func isHCloudErrorCode(err error, codes ...hcloud.ErrorCode) bool {
	if err == nil {
		return false
	}

	var hcloudErr hcloud.Error
	if errors.As(err, &hcloudErr) {
		for _, code := range codes {
			if hcloudErr.Code == code {
				return true
			}
		}
	}
	return false
}

// kindOf maps an hcloud error onto the provider error taxonomy.
func kindOf(err error) cloud.Kind {
	switch {
	case isHCloudErrorCode(err, hcloud.ErrorCodeNotFound):
		return cloud.KindNotFound
	case isHCloudErrorCode(err,
		hcloud.ErrorCodeConflict,
		hcloud.ErrorCodeLocked,
		hcloud.ErrorCodeResourceLocked,
		hcloud.ErrorCodeResourceInUse,
	):
		return cloud.KindConflict
	case isHCloudErrorCode(err,
		hcloud.ErrorCodeRateLimitExceeded,
		hcloud.ErrorCodeResourceUnavailable,
		hcloud.ErrorCodeServiceError,
		hcloud.ErrorCode("timeout"),
	):
		return cloud.KindTransient
	}

	if kind := cloud.KindOf(err); kind != cloud.KindFatal {
		return kind
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return cloud.KindTransient
	}
	return cloud.KindFatal
}

// classify wraps err in a cloud.Error. Errors that are already classified
// keep their kind.
func classify(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var cErr *cloud.Error
	if errors.As(err, &cErr) {
		return err
	}
	return cloud.NewError(kindOf(err), op, resource, err)
}
