package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	// ListenAddr is where `serve` binds the gateway.
	ListenAddr string `mapstructure:"listen_addr"`
	// Bucket is the store originals and renditions live in, e.g. "s3://test-image-gateway".
	Bucket string `mapstructure:"bucket"`
	// DynamoDBTable enables the rendition ledger when set.
	DynamoDBTable string `mapstructure:"dynamodb_table"`
	// RequestTimeout bounds one fill, mirroring the invocation timeout of the hosted function.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	AWSRegion         string `mapstructure:"aws_region"`
	S3Endpoint        string `mapstructure:"s3_endpoint"`
	S3PathStyle       bool   `mapstructure:"s3_path_style"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
	GCSEnabled        bool   `mapstructure:"gcs_enabled"`

	// AwsConfig: AWS SDK uses a shared configuration object that contains
	// credentials, region, retry policies, etc. S3 and DynamoDB are both
	// created from it.
	AwsConfig aws.Config `mapstructure:"-"`
	// GcsClient is only created when a gs:// bucket is in use.
	GcsClient *storage.Client `mapstructure:"-"`
}

// LoadConfig loads configuration from config.yaml, environment variables, or CLI flags
// Priority: CLI flags > Environment variables > config.yaml > defaults
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v, err := setupViper(configPath, flags)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return &cfg, nil
}

// setupViper configures Viper with defaults, paths, and bindings
func setupViper(configPath string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return v, nil
}

// bindFlags binds each flag to the key with dashes replaced by underscores,
// so --log-level sets log_level.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || err != nil {
			return
		}
		if bindErr := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); bindErr != nil {
			err = fmt.Errorf("failed to bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("bucket", "")
	v.SetDefault("dynamodb_table", "")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("aws_region", "")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_path_style", false)
	v.SetDefault("s3_access_key_id", "")
	v.SetDefault("s3_secret_access_key", "")
	v.SetDefault("gcs_enabled", false)
}

// UsesGCS reports whether a GCS client is needed.
func (c *Config) UsesGCS() bool {
	return c.GCSEnabled || strings.HasPrefix(c.Bucket, "gs://") || strings.HasPrefix(c.Bucket, "gcs://")
}

// LoadClients loads the AWS SDK configuration and, if needed, the GCS client.
func (c *Config) LoadClients(ctx context.Context) error {
	awsConfig, err := loadAWSConfig(ctx, c)
	if err != nil {
		return err
	}
	c.AwsConfig = awsConfig

	if c.UsesGCS() {
		gcsClient, err := loadGCSClient(ctx)
		if err != nil {
			return err
		}
		c.GcsClient = gcsClient
	}
	return nil
}

// loadAWSConfig loads AWS SDK configuration
func loadAWSConfig(ctx context.Context, c *Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(c.AWSRegion))
	}
	// Static keys are for S3-compatible endpoints that don't use the AWS credential chain
	if c.S3AccessKeyID != "" && c.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.S3AccessKeyID, c.S3SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %v", err)
	}
	return cfg, nil
}

// loadGCSClient loads Google Cloud Storage client
func loadGCSClient(ctx context.Context) (*storage.Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to create GCS client: %v", err)
	}
	return client, nil
}
