package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	API      APIConfig      `mapstructure:"api"      validate:"required"`
	Errors   ErrorsConfig   `mapstructure:"errors"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// RateLimitPerMinute caps requests per client IP; 0 disables the limiter.
	RateLimitPerMinute int  `mapstructure:"rate_limit_per_minute" validate:"gte=0"`
	MetricsEnabled     bool `mapstructure:"metrics_enabled"`
}

// AuthConfig contains the JWT signing and extraction settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	Algorithm string `mapstructure:"algorithm"  validate:"required,oneof=HS256 HS384 HS512"`
	// VerifyExpiration toggles the exp check. When false, expired tokens still decode.
	VerifyExpiration bool `mapstructure:"verify_expiration"`
	// ExpirationMinutes may be fractional (0.1 = six seconds).
	ExpirationMinutes float64 `mapstructure:"expiration_minutes" validate:"gt=0"`
	// CookieName, when set, is read instead of the Authorization header.
	CookieName string `mapstructure:"cookie_name"`
	BcryptCost int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// APIConfig selects the response envelope and the process-wide guards.
type APIConfig struct {
	Envelope string `mapstructure:"envelope" validate:"required,oneof=simple rich"`
	// SuccessCode is the error_code reported by the rich envelope on success.
	SuccessCode int `mapstructure:"success_code"`
	// DefaultGuards names guards from the permission registry that apply when
	// a view declares nothing for the request method.
	DefaultGuards []string `mapstructure:"default_guards" validate:"dive,required"`
}

// ErrorsConfig lets an operator remap the error taxonomy at startup.
// Keys are kind names such as "unauthorized" or "not_found".
type ErrorsConfig struct {
	Overrides map[string]ErrorOverride `mapstructure:"overrides" validate:"dive"`
}

// ErrorOverride replaces individual fields of a taxonomy entry. Zero values
// leave the built-in default in place.
type ErrorOverride struct {
	Status   int    `mapstructure:"status"    validate:"omitempty,gte=100,lt=600"`
	Code     int    `mapstructure:"code"`
	UserHint string `mapstructure:"user_hint"`
	LogHint  string `mapstructure:"log_hint"`
	Severity string `mapstructure:"severity"  validate:"omitempty,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL selects the in-memory user store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// CacheConfig configures the optional Redis principal cache.
type CacheConfig struct {
	RedisAddr      string `mapstructure:"redis_addr"       validate:"omitempty,hostname_port"`
	UserTTLSeconds int    `mapstructure:"user_ttl_seconds" validate:"gte=0"`
}

// StorageConfig configures where uploaded files are written.
type StorageConfig struct {
	Backend        string `mapstructure:"backend"         validate:"required,oneof=local s3"`
	Root           string `mapstructure:"root"            validate:"required_if=Backend local"`
	BaseURL        string `mapstructure:"base_url"`
	FilenameLength int    `mapstructure:"filename_length" validate:"gt=0"`
	// DatePrefix is a strftime-style layout ("%Y/%m") prepended to generated names.
	DatePrefix string `mapstructure:"date_prefix"`
	S3Bucket   string `mapstructure:"s3_bucket"   validate:"required_if=Backend s3"`
	S3Region   string `mapstructure:"s3_region"   validate:"required_if=Backend s3"`
	S3Endpoint string `mapstructure:"s3_endpoint" validate:"omitempty,url"`
	S3Prefix   string `mapstructure:"s3_prefix"`
}
