package function

import (
	"strconv"

	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"github.com/openfroyo/froyo-fgs/pkg/fgs"
)

// ConsoleURL links to the FunctionGraph dashboard.
const ConsoleURL = "https://console.huaweicloud.com/functiongraph/#/serverless/dashboard"

// Project renders a function record for display.
func Project(rec *fgs.FunctionRecord) engine.Projection {
	if rec == nil {
		return nil
	}
	description := rec.Description
	if description == "" {
		description = "No description"
	}
	return engine.Projection{{
		Header: "Function",
		Fields: []engine.Field{
			{Label: "Function Name", Value: rec.FuncName},
			{Label: "Function URN", Value: rec.FuncURN},
			{Label: "Project name", Value: rec.ProjectName},
			{Label: "Runtime", Value: rec.Runtime},
			{Label: "Handler", Value: rec.Handler},
			{Label: "Code size", Value: strconv.FormatInt(rec.CodeSize, 10)},
			{Label: "Timeout", Value: strconv.Itoa(rec.Timeout)},
			{Label: "Description", Value: description},
			{Label: "More", Value: ConsoleURL},
		},
	}}
}
