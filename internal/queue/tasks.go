package queue

// Task types handled by the provisioning worker.
const (
	TypeTenantProvision = "tenant:provision"
	TypeTenantUpdate    = "tenant:update"
)

// QueueProvisioning is the asynq queue the tenant workflow runs on.
const QueueProvisioning = "provisioning"

// TenantCreateRequest is the caller's tenant-creation request. It is carried
// inside the job payload so the worker resolves everything it needs at
// execution time.
type TenantCreateRequest struct {
	Key                 string `json:"key"`
	Name                string `json:"name"`
	HasIsolatedDatabase bool   `json:"has_isolated_database"`
	AdminEmail          string `json:"admin_email"`
	AdminPassword       string `json:"admin_password"`
	AdminFirstName      string `json:"admin_first_name"`
	AdminLastName       string `json:"admin_last_name"`
}

// TenantUpdateRequest carries the mutable tenant fields.
type TenantUpdateRequest struct {
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// TenantProvisionPayload is the serializable job-parameters record for a
// tenant creation run.
type TenantProvisionPayload struct {
	TenantID    uint                `json:"tenant_id"`
	Request     TenantCreateRequest `json:"request"`
	InitiatedBy uint                `json:"initiated_by"`
}

// TenantUpdatePayload is the serializable job-parameters record for a
// tenant update run.
type TenantUpdatePayload struct {
	TenantID    uint                `json:"tenant_id"`
	Request     TenantUpdateRequest `json:"request"`
	InitiatedBy uint                `json:"initiated_by"`
}
