package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Validate checks structural invariants and returns actionable errors.
// A non-nil error means the config must not be served.
func Validate(cfg *ServerConfig) error {
	var errs []error

	if cfg.Name == "" {
		errs = append(errs, errors.New("missing required field: name"))
	}
	if cfg.SocketPath == "" {
		errs = append(errs, errors.New("missing required field: socket_path"))
	}
	if cfg.Commands == nil {
		errs = append(errs, errors.New("missing required field: commands"))
	}

	names := make([]string, 0, len(cfg.Commands))
	for name := range cfg.Commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		errs = append(errs, validateCommand(name, cfg.Commands[name], cfg.AllowedExecutableDirs)...)
	}

	return errors.Join(errs...)
}

func validateCommand(name string, cmd CommandSpec, allowedDirs []string) []error {
	var errs []error

	if len(cmd.Executable) == 0 {
		return append(errs, fmt.Errorf("command %q: missing executable", name))
	}
	if _, err := ResolveExecutable(cmd.Executable, allowedDirs); err != nil {
		errs = append(errs, fmt.Errorf("command %q: %w", name, err))
	}

	paramNames := make([]string, 0, len(cmd.Parameters))
	for pname := range cmd.Parameters {
		paramNames = append(paramNames, pname)
	}
	sort.Strings(paramNames)

	for _, pname := range paramNames {
		param := cmd.Parameters[pname]
		switch param.EffectiveType() {
		case TypeString, TypeNumber, TypeBoolean:
		default:
			errs = append(errs, fmt.Errorf("command %q parameter %q: unknown type %q", name, pname, param.Type))
		}
		switch param.EffectiveStyle() {
		case StyleFlag, StyleArgument, StyleSingleFlag:
		default:
			errs = append(errs, fmt.Errorf("command %q parameter %q: unknown style %q", name, pname, param.Style))
		}
		if param.Pattern != "" {
			if _, err := regexp.Compile(param.Pattern); err != nil {
				errs = append(errs, fmt.Errorf("command %q parameter %q: invalid pattern %q: %w", name, pname, param.Pattern, err))
			}
		}
	}

	return errs
}

// ResolveExecutable resolves the first argv entry to an absolute path under
// one of the allowed directories. Absolute binaries must fall under an
// allowed directory; relative binaries are looked up in each allowed
// directory in order. The resolved file must exist and be executable.
func ResolveExecutable(executable []string, allowedDirs []string) (string, error) {
	if len(executable) == 0 {
		return "", errors.New("empty executable")
	}
	binary := executable[0]

	if filepath.IsAbs(binary) {
		if !underAllowedDir(binary, allowedDirs) {
			return "", fmt.Errorf("executable %q is outside allowed_executable_dirs", binary)
		}
		if err := checkExecutable(binary); err != nil {
			return "", err
		}
		return binary, nil
	}

	for _, dir := range allowedDirs {
		full := filepath.Join(dir, binary)
		if err := checkExecutable(full); err == nil {
			return full, nil
		}
	}
	return "", fmt.Errorf("executable %q not found in allowed_executable_dirs", binary)
}

func underAllowedDir(binary string, allowedDirs []string) bool {
	for _, dir := range allowedDirs {
		if !strings.HasSuffix(dir, string(os.PathSeparator)) {
			dir += string(os.PathSeparator)
		}
		if strings.HasPrefix(binary, dir) {
			return true
		}
	}
	return false
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("executable %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("executable %q is not a regular file", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("executable %q is not executable: %w", path, fs.ErrPermission)
	}
	return nil
}
