package function

import (
	"os"

	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/engine"
)

// Messages reported for declarations that cannot be deployed.
const (
	MsgMissingFunction = "First configure the function in the yml."
	MsgMissingXrole    = "First configure the xrole field in the yml file."
	MsgMissingVpcID    = "First configure the vpcId field in the yml file."
	MsgMissingCodeURL  = "First configure the codeUrl field in the yml file."
)

// Validate checks spec without touching the network. Every failure is an
// engine configuration error naming the offending field.
func Validate(spec *config.FunctionSpec) error {
	if spec == nil || spec.Name == "" {
		return engine.NewConfigurationError("name", MsgMissingFunction)
	}
	normalized := *spec
	normalized.CodeType = config.NormalizeCodeType(spec.CodeType)
	spec = &normalized
	if err := config.ValidateStruct(spec); err != nil {
		return err
	}

	vpc := spec.EffectiveVpcID()
	if vpc != "" && spec.EffectiveXrole() == "" {
		return engine.NewConfigurationError("xrole", MsgMissingXrole)
	}
	if vpc == "" && spec.EffectiveSubnetID() != "" {
		return engine.NewConfigurationError("vpcId", MsgMissingVpcID)
	}
	if spec.CodeType == config.CodeTypeOBS && spec.CodeURL == "" {
		return engine.NewConfigurationError("codeUrl", MsgMissingCodeURL)
	}
	if spec.CodeURI != "" {
		if _, err := os.Stat(spec.CodeURI); err != nil {
			cfgErr := engine.NewConfigurationError("codeUri", "code path "+spec.CodeURI+" is not readable")
			cfgErr.Err = err
			return cfgErr
		}
	}
	return nil
}
