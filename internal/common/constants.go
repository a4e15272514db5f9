package common

// Environment variable keys
const (
	EnvConfigFile        = "CONFIG_FILE"
	EnvArtifactDir       = "ARTIFACT_DIR"
	EnvScalerFile        = "SCALER_FILE"
	EnvReducerFile       = "REDUCER_FILE"
	EnvClassifierFile    = "CLASSIFIER_FILE"
	EnvSchemaFile        = "SCHEMA_FILE"
	EnvMetadataFile      = "METADATA_FILE"
	EnvDecisionThreshold = "DECISION_THRESHOLD"
	EnvListenPort        = "LISTEN_PORT"
	EnvDataPath          = "DATA_PATH"
	EnvLogLevel          = "LOG_LEVEL"
	EnvRequestTimeout    = "REQUEST_TIMEOUT"
)

// Configuration defaults
const (
	DefaultArtifactDir       = "models"
	DefaultScalerFile        = "scaler.json"
	DefaultReducerFile       = "pca.json"
	DefaultClassifierFile    = "stacking.json"
	DefaultSchemaFile        = "feature_names.json"
	DefaultMetadataFile      = "model_metadata.json"
	DefaultDecisionThreshold = 0.5
	DefaultListenPort        = 8501
	DefaultLogLevel          = "info"
)

// Feature names produced by the feature builder. Trained schemas refer to
// these exact strings.
const (
	FeatureCreditScore            = "CreditScore"
	FeatureAge                    = "Age"
	FeatureTenure                 = "Tenure"
	FeatureBalance                = "Balance"
	FeatureNumOfProducts          = "NumOfProducts"
	FeatureHasCrCard              = "HasCrCard"
	FeatureIsActiveMember         = "IsActiveMember"
	FeatureEstimatedSalary        = "EstimatedSalary"
	FeatureBalanceToSalary        = "Balance_to_Salary"
	FeatureTenureToAge            = "Tenure_to_Age"
	FeatureBalanceAgeInteraction  = "Balance_Age_Interaction"
	FeatureProductsAgeInteraction = "Products_Age_Interaction"
	FeatureGeographySpain         = "Geography_Spain"
	FeatureGeographyGermany       = "Geography_Germany"
	FeatureGenderMale             = "Gender_Male"
)

// Input domain limits enforced at the form boundary
const (
	MinCreditScore   = 0
	MaxCreditScore   = 1000
	MinAge           = 18
	MaxAge           = 100
	MinTenure        = 0
	MaxTenure        = 10
	MinNumOfProducts = 1
	MaxNumOfProducts = 4
)

// Validation constants
const (
	MinListenPort = 1024
	MaxListenPort = 65535
)

// Result messages shown to the user
const (
	MsgHighRisk = "High Risk Customer - Immediate Action Recommended"
	MsgLowRisk  = "Low Risk Customer - Keep Up the Good Work!"
)
