package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvAuthToken = "HUAWEICLOUD_AUTH_TOKEN"
	EnvProjectID = "HUAWEICLOUD_PROJECT_ID"
	EnvRegion    = "HUAWEICLOUD_REGION"
	EnvAccessKey = "HUAWEICLOUD_ACCESS_KEY"
	EnvSecretKey = "HUAWEICLOUD_SECRET_KEY"
	EnvEndpoint  = "FGS_ENDPOINT"
)

// Environment carries credentials and endpoint overrides taken from the
// process environment.
type Environment struct {
	AuthToken string
	ProjectID string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// LoadEnvFile loads a dotenv file into the process environment. Variables
// already set are left alone. An empty path is a no-op.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// EnvironmentFromOS reads the Environment from the process environment.
func EnvironmentFromOS() Environment {
	return Environment{
		AuthToken: os.Getenv(EnvAuthToken),
		ProjectID: os.Getenv(EnvProjectID),
		Region:    os.Getenv(EnvRegion),
		AccessKey: os.Getenv(EnvAccessKey),
		SecretKey: os.Getenv(EnvSecretKey),
		Endpoint:  os.Getenv(EnvEndpoint),
	}
}

// HasObjectStorageCredentials reports whether an access key pair is set.
func (e Environment) HasObjectStorageCredentials() bool {
	return e.AccessKey != "" && e.SecretKey != ""
}
