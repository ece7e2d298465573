package function

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/fgs"
)

// URN returns the function URN: the declared one when set, otherwise
// urn:fss:<region>:<project>:function:<package>:<name>:latest.
func URN(spec *config.FunctionSpec, region, projectID string) string {
	if spec.URN != "" {
		return spec.URN
	}
	pkg := spec.Package
	if pkg == "" {
		pkg = config.DefaultFunctionSpec().Package
	}
	return fmt.Sprintf("urn:fss:%s:%s:function:%s:%s:latest", region, projectID, pkg, spec.Name)
}

// BuildRequest converts spec into a create or update body. For non-obs code
// types a local code path is read and sent inline.
func BuildRequest(spec *config.FunctionSpec) (*fgs.FunctionRequest, error) {
	req := &fgs.FunctionRequest{
		FuncName:            spec.Name,
		Package:             spec.Package,
		Runtime:             spec.Runtime,
		Handler:             spec.Handler,
		MemorySize:          spec.MemorySize,
		Timeout:             spec.Timeout,
		CodeType:            config.NormalizeCodeType(spec.CodeType),
		CodeURL:             spec.CodeURL,
		CodeFilename:        spec.CodeFilename,
		Description:         spec.Description,
		Xrole:               spec.EffectiveXrole(),
		AppXrole:            spec.AppXrole,
		LogGroupID:          spec.LogGroupID,
		LogStreamID:         spec.LogStreamID,
		LogGroupName:        spec.LogGroupName,
		LogStreamName:       spec.LogStreamName,
		InitializerHandler:  spec.InitializerHandler,
		InitializerTimeout:  spec.InitializerTimeout,
		EnableDynamicMemory: spec.EnableDynamicMemory,
		EnterpriseProjectID: spec.EnterpriseProjectID,
		DependVersionList:   spec.DependVersionList,
	}

	if vpc := spec.EffectiveVpcID(); vpc != "" {
		req.FuncVpc = &fgs.VPC{VpcID: vpc, SubnetID: spec.EffectiveSubnetID()}
		if v := spec.FuncVpc; v != nil {
			req.FuncVpc.VpcName = v.VpcName
			req.FuncVpc.SubnetName = v.SubnetName
			req.FuncVpc.Cidr = v.Cidr
			req.FuncVpc.Gateway = v.Gateway
		}
	}

	if spec.Concurrency != 0 || spec.ConcurrentNum != 0 {
		req.StrategyConfig = &fgs.StrategyConfig{}
		if spec.Concurrency != 0 {
			c := spec.Concurrency
			req.StrategyConfig.Concurrency = &c
		}
		if spec.ConcurrentNum != 0 {
			n := spec.ConcurrentNum
			req.StrategyConfig.ConcurrentNum = &n
		}
	}

	userData, err := encodeUserData(spec.UserData, spec.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user data: %w", err)
	}
	req.UserData = userData
	if req.EncryptedUserData, err = encodeUserData(spec.EncryptedUserData, nil); err != nil {
		return nil, fmt.Errorf("failed to encode encrypted user data: %w", err)
	}

	if spec.CodeURI != "" && req.CodeType != config.CodeTypeOBS {
		data, err := os.ReadFile(spec.CodeURI)
		if err != nil {
			return nil, fmt.Errorf("failed to read code from %s: %w", spec.CodeURI, err)
		}
		req.FuncCode = &fgs.FunctionCode{File: base64.StdEncoding.EncodeToString(data)}
		if req.CodeFilename == "" {
			req.CodeFilename = filepath.Base(spec.CodeURI)
		}
	}
	return req, nil
}

// encodeUserData merges environment variables over user data and renders
// the result as the JSON string the platform expects.
func encodeUserData(userData, environment map[string]string) (string, error) {
	if len(userData) == 0 && len(environment) == 0 {
		return "", nil
	}
	merged := make(map[string]string, len(userData)+len(environment))
	for k, v := range userData {
		merged[k] = v
	}
	for k, v := range environment {
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
