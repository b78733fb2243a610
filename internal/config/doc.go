// Package config resolves installer settings from the environment into an
// explicit Config struct, validating required variables before any network or
// filesystem mutation takes place.
//
// Required variables are GC_API_KEY, GC_ENV_NAME and GC_DOMAIN; everything
// else carries a default that can be overridden per host.
package config
