package fgs

// FunctionCode carries inline code for create and code-update requests.
type FunctionCode struct {
	// File is the base64 encoded artifact.
	File string `json:"file,omitempty"`
	Link string `json:"link,omitempty"`
}

// VPC is the func_vpc block of a function.
type VPC struct {
	VpcID      string `json:"vpc_id,omitempty"`
	VpcName    string `json:"vpc_name,omitempty"`
	SubnetID   string `json:"subnet_id,omitempty"`
	SubnetName string `json:"subnet_name,omitempty"`
	Cidr       string `json:"cidr,omitempty"`
	Gateway    string `json:"gateway,omitempty"`
}

// StrategyConfig is the concurrency block of a function.
type StrategyConfig struct {
	Concurrency   *int `json:"concurrency,omitempty"`
	ConcurrentNum *int `json:"concurrent_num,omitempty"`
}

// FunctionRequest is the body of create and update calls.
type FunctionRequest struct {
	FuncName            string          `json:"func_name"`
	Package             string          `json:"package"`
	Runtime             string          `json:"runtime"`
	Handler             string          `json:"handler"`
	MemorySize          int             `json:"memory_size"`
	Timeout             int             `json:"timeout"`
	CodeType            string          `json:"code_type"`
	CodeURL             string          `json:"code_url,omitempty"`
	CodeFilename        string          `json:"code_filename,omitempty"`
	FuncCode            *FunctionCode   `json:"func_code,omitempty"`
	Description         string          `json:"description,omitempty"`
	Xrole               string          `json:"xrole,omitempty"`
	AppXrole            string          `json:"app_xrole,omitempty"`
	FuncVpc             *VPC            `json:"func_vpc,omitempty"`
	LogGroupID          string          `json:"log_group_id,omitempty"`
	LogStreamID         string          `json:"log_stream_id,omitempty"`
	LogGroupName        string          `json:"log_group_name,omitempty"`
	LogStreamName       string          `json:"log_stream_name,omitempty"`
	StrategyConfig      *StrategyConfig `json:"strategy_config,omitempty"`
	UserData            string          `json:"user_data,omitempty"`
	EncryptedUserData   string          `json:"encrypted_user_data,omitempty"`
	InitializerHandler  string          `json:"initializer_handler,omitempty"`
	InitializerTimeout  int             `json:"initializer_timeout,omitempty"`
	EnableDynamicMemory bool            `json:"enable_dynamic_memory,omitempty"`
	EnterpriseProjectID string          `json:"enterprise_project_id,omitempty"`
	DependVersionList   []string        `json:"depend_version_list,omitempty"`
	Type                string          `json:"type,omitempty"`
}

// FunctionRecord is the remote representation of a function.
type FunctionRecord struct {
	FuncURN        string          `json:"func_urn"`
	FuncName       string          `json:"func_name"`
	Package        string          `json:"package"`
	ProjectName    string          `json:"project_name"`
	Namespace      string          `json:"namespace,omitempty"`
	Runtime        string          `json:"runtime"`
	Handler        string          `json:"handler"`
	MemorySize     int             `json:"memory_size"`
	Timeout        int             `json:"timeout"`
	CodeType       string          `json:"code_type"`
	CodeURL        string          `json:"code_url,omitempty"`
	CodeSize       int64           `json:"code_size"`
	Description    string          `json:"description"`
	Xrole          string          `json:"xrole,omitempty"`
	StrategyConfig *StrategyConfig `json:"strategy_config,omitempty"`
	FuncVpc        *VPC            `json:"func_vpc,omitempty"`
	LogGroupID     string          `json:"log_group_id,omitempty"`
	LogStreamID    string          `json:"log_stream_id,omitempty"`
	Version        string          `json:"version"`
	LastModified   string          `json:"last_modified,omitempty"`
}

// TriggerRecord is the remote representation of a trigger.
type TriggerRecord struct {
	TriggerID       string         `json:"trigger_id"`
	TriggerTypeCode string         `json:"trigger_type_code"`
	TriggerStatus   string         `json:"trigger_status"`
	EventTypeCode   string         `json:"event_type_code,omitempty"`
	EventData       map[string]any `json:"event_data"`
	LastUpdatedTime string         `json:"last_updated_time,omitempty"`
	CreatedTime     string         `json:"created_time,omitempty"`
}

// CreateTriggerRequest is the body of a create-trigger call.
type CreateTriggerRequest struct {
	TriggerTypeCode string         `json:"trigger_type_code"`
	TriggerStatus   string         `json:"trigger_status"`
	EventTypeCode   string         `json:"event_type_code,omitempty"`
	EventData       map[string]any `json:"event_data"`
}

// UpdateTriggerRequest addresses a trigger and carries the new status.
type UpdateTriggerRequest struct {
	TriggerID       string `json:"-"`
	TriggerTypeCode string `json:"-"`
	TriggerStatus   string `json:"trigger_status"`
}

// DeleteTriggerRequest addresses the trigger to delete.
type DeleteTriggerRequest struct {
	TriggerID       string
	TriggerTypeCode string
}
