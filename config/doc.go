// Package config provides configuration loading for containerkit.
//
// Configuration is read from an optional YAML file and a .env file via
// viper and godotenv, with environment variables (CONTAINERKIT_ prefix)
// taking precedence. Projects embed Config or use it directly to drive
// the access bootstrap: logging, preferred provider, override and
// shutdown policy.
package config
