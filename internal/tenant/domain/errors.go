package domain

import "errors"

var ErrTenantNotFound = errors.New("tenant_not_found")
