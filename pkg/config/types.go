package config

import "strings"

// Code types accepted for FunctionSpec.CodeType.
const (
	CodeTypeInline = "inline"
	CodeTypeZip    = "zip"
	CodeTypeJar    = "jar"
	CodeTypeOBS    = "obs"
)

// Trigger statuses.
const (
	StatusActive   = "ACTIVE"
	StatusDisabled = "DISABLED"
)

// DefaultRegion is used when neither the project file nor the environment
// names a region.
const DefaultRegion = "cn-north-4"

// Project is a complete declared deployment: one function and its triggers.
type Project struct {
	// Region is the FunctionGraph region, e.g. cn-north-4.
	Region string `json:"region" validate:"required"`

	// ProjectID is the Huawei Cloud project the function lives in.
	ProjectID string `json:"projectId" validate:"required"`

	// Function is the declared function. Nil when the file declares none.
	Function *FunctionSpec `json:"function,omitempty"`

	// Triggers are the declared triggers in declaration order.
	Triggers []TriggerSpec `json:"triggers,omitempty" validate:"dive"`

	// Source is the file the project was loaded from.
	Source string `json:"-"`
}

// VPCConfig is the structured funcVpc block.
type VPCConfig struct {
	VpcName    string `json:"vpcName,omitempty"`
	VpcID      string `json:"vpcId,omitempty"`
	SubnetName string `json:"subnetName,omitempty"`
	SubnetID   string `json:"subnetId,omitempty"`
	Cidr       string `json:"cidr,omitempty" validate:"omitempty,cidr"`
	Gateway    string `json:"gateway,omitempty" validate:"omitempty,ip"`
}

// FunctionSpec is the typed declared function.
type FunctionSpec struct {
	Name         string `json:"name"`
	Package      string `json:"package" validate:"omitempty,max=64"`
	Runtime      string `json:"runtime"`
	Handler      string `json:"handler" validate:"omitempty,max=128"`
	MemorySize   int    `json:"memorySize" validate:"omitempty,min=128,max=10240"`
	Timeout      int    `json:"timeout" validate:"omitempty,min=1,max=900"`
	CodeType     string `json:"codeType" validate:"omitempty,oneof=inline zip jar obs"`
	CodeURL      string `json:"codeUrl,omitempty"`
	CodeFilename string `json:"codeFilename,omitempty"`

	// CodeURI is a local artifact path (code.codeUri) uploaded to CodeURL.
	CodeURI string `json:"codeUri,omitempty"`

	Description string `json:"description,omitempty" validate:"omitempty,max=512"`

	Xrole    string `json:"xrole,omitempty"`
	AppXrole string `json:"appXrole,omitempty"`

	// Deprecated: use Xrole.
	AgencyName string `json:"agencyName,omitempty"`
	// Deprecated: use FuncVpc.VpcID.
	VpcID string `json:"vpcId,omitempty"`
	// Deprecated: use FuncVpc.SubnetID.
	SubnetID string `json:"subnetId,omitempty"`

	FuncVpc *VPCConfig `json:"funcVpc,omitempty"`

	LogGroupID    string `json:"ltsGroupId,omitempty"`
	LogStreamID   string `json:"ltsStreamId,omitempty"`
	LogGroupName  string `json:"ltsGroupName,omitempty"`
	LogStreamName string `json:"ltsStreamName,omitempty"`

	Concurrency   int `json:"concurrency,omitempty" validate:"omitempty,min=-1"`
	ConcurrentNum int `json:"concurrentNum,omitempty" validate:"omitempty,min=1"`

	Environment       map[string]string `json:"environment,omitempty"`
	UserData          map[string]string `json:"userData,omitempty"`
	EncryptedUserData map[string]string `json:"encryptedUserData,omitempty"`

	InitializerHandler  string `json:"initializerHandler,omitempty"`
	InitializerTimeout  int    `json:"initializerTimeout,omitempty" validate:"omitempty,min=1,max=300"`
	EnableDynamicMemory bool   `json:"enableDynamicMemory,omitempty"`
	EnterpriseProjectID string `json:"enterpriseProjectId,omitempty"`

	DependVersionList []string `json:"dependVersionList,omitempty"`

	// URN overrides the derived function URN.
	URN string `json:"urn,omitempty"`
}

// EffectiveVpcID returns funcVpc.vpcId, falling back to the deprecated vpcId.
func (f *FunctionSpec) EffectiveVpcID() string {
	if f.FuncVpc != nil && f.FuncVpc.VpcID != "" {
		return f.FuncVpc.VpcID
	}
	return f.VpcID
}

// EffectiveSubnetID returns funcVpc.subnetId, falling back to the deprecated subnetId.
func (f *FunctionSpec) EffectiveSubnetID() string {
	if f.FuncVpc != nil && f.FuncVpc.SubnetID != "" {
		return f.FuncVpc.SubnetID
	}
	return f.SubnetID
}

// EffectiveXrole returns xrole, falling back to the deprecated agencyName.
func (f *FunctionSpec) EffectiveXrole() string {
	if f.Xrole != "" {
		return f.Xrole
	}
	return f.AgencyName
}

// TriggerSpec is one declared trigger.
type TriggerSpec struct {
	// TypeCode is the upper-cased trigger kind, e.g. TIMER.
	TypeCode string `json:"triggerTypeCode" validate:"required"`

	// Status is ACTIVE or DISABLED. Empty means ACTIVE.
	Status string `json:"status,omitempty" validate:"omitempty,oneof=ACTIVE DISABLED"`

	// EventData is the kind-specific configuration in either key convention.
	EventData Bag `json:"eventData,omitempty"`

	// TriggerID pins the remote trigger this block manages. When set, a
	// remote trigger with this id is matched before event data is compared.
	TriggerID string `json:"triggerId,omitempty"`
}

// EffectiveStatus returns the declared status or ACTIVE.
func (t TriggerSpec) EffectiveStatus() string {
	if t.Status == "" {
		return StatusActive
	}
	return t.Status
}

// Kind returns the upper-cased type code.
func (t TriggerSpec) Kind() string {
	return strings.ToUpper(strings.TrimSpace(t.TypeCode))
}
