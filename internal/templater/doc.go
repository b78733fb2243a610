// Package templater substitutes placeholder tokens in shipped YAML
// configuration files with environment variable values.
//
// A token has the form <GC_PLACEHOLDER_NAME> and resolves from the variable
// GC_NAME. Substitution is all-or-nothing: every token must be resolvable
// before the file is rewritten in a single write, and the result must still
// parse as YAML.
package templater
