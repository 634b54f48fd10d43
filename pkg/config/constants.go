package config

const (
	// EnvPrefix is passed to envconfig; individual fields carry fully
	// qualified names so the prefix stays empty.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ISELLDATA_DB_DSN"
	EnvDBHost = "ISELLDATA_DB_HOST"
	EnvDBUser = "ISELLDATA_DB_USER"
	EnvDBName = "ISELLDATA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
