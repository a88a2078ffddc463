package openstack

import (
	"errors"
	"net"
	"net/http"

	"github.com/gophercloud/gophercloud"

	"github.com/imamik/vnfstack/internal/cloud"
)

// statusCoder is implemented by gophercloud response errors.
type statusCoder interface {
	GetStatusCode() int
}

// statusCode extracts the HTTP status of a gophercloud error.
func statusCode(err error) (int, bool) {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.GetStatusCode(), true
	}
	var unexpected gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &unexpected) {
		return unexpected.Actual, true
	}
	return 0, false
}

// kindOf maps a gophercloud error onto the cloud error taxonomy.
func kindOf(err error) cloud.Kind {
	var ce *cloud.Error
	if errors.As(err, &ce) {
		return ce.Kind
	}

	var (
		notFound    gophercloud.ErrDefault404
		missing     gophercloud.ErrResourceNotFound
		rateLimited gophercloud.ErrDefault429
		internal    gophercloud.ErrDefault500
		unavailable gophercloud.ErrDefault503
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &missing):
		return cloud.KindNotFound
	case errors.As(err, &rateLimited), errors.As(err, &internal), errors.As(err, &unavailable):
		return cloud.KindTransient
	}

	if code, ok := statusCode(err); ok {
		switch {
		case code == http.StatusNotFound:
			return cloud.KindNotFound
		case code == http.StatusConflict:
			return cloud.KindConflict
		case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
			return cloud.KindTransient
		}
		return cloud.KindFatal
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return cloud.KindTransient
	}
	return cloud.KindFatal
}

// classify wraps err as a *cloud.Error. Already classified errors are kept.
func classify(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var ce *cloud.Error
	if errors.As(err, &ce) {
		return err
	}
	return cloud.NewError(kindOf(err), op, resource, err)
}

// isNotFound reports whether err is a 404 from the API.
func isNotFound(err error) bool {
	return err != nil && kindOf(err) == cloud.KindNotFound
}
