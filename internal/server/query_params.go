package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	notificationdomain "github.com/resellhub/notify-engine/internal/notification/domain"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalStatus(value string) (*notificationdomain.Status, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return nil, nil
	}
	status := notificationdomain.Status(trimmed)
	switch status {
	case notificationdomain.StatusPending,
		notificationdomain.StatusSending,
		notificationdomain.StatusSent,
		notificationdomain.StatusFailed,
		notificationdomain.StatusCancelled:
		return &status, nil
	default:
		return nil, errors.New("invalid_status")
	}
}

func parseOptionalServiceType(value string) (*notificationdomain.ServiceType, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return nil, nil
	}
	serviceType := notificationdomain.ServiceType(trimmed)
	switch serviceType {
	case notificationdomain.ServiceTypeDomain,
		notificationdomain.ServiceTypeHosting,
		notificationdomain.ServiceTypeVPS,
		notificationdomain.ServiceTypeInvoice:
		return &serviceType, nil
	default:
		return nil, errors.New("invalid_service_type")
	}
}

func parseOptionalType(value string) (*notificationdomain.Type, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return nil, nil
	}
	notificationType := notificationdomain.Type(trimmed)
	switch notificationType {
	case notificationdomain.TypeExpiringSoon1,
		notificationdomain.TypeExpiringSoon2,
		notificationdomain.TypeExpiringSoon3,
		notificationdomain.TypeExpired,
		notificationdomain.TypeDeletionWarning,
		notificationdomain.TypeDeleted,
		notificationdomain.TypeInvoiceReminder,
		notificationdomain.TypeInvoiceDueSoon:
		return &notificationType, nil
	default:
		return nil, errors.New("invalid_type")
	}
}

func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		} else {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		}
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}
