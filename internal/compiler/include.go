package compiler

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/aretw0/skein/pkg/domain"
)

const includeDirective = "INCLUDE"

// ExpandIncludes replaces every `INCLUDE file` line with the lines of file,
// read from fsys. Included files may include others; paths are always
// resolved against the root of fsys.
func ExpandIncludes(lines []string, fsys fs.FS) ([]string, error) {
	return expand(lines, fsys, nil)
}

func expand(lines []string, fsys fs.FS, stack []string) ([]string, error) {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		name, ok := includeTarget(line)
		if !ok {
			out = append(out, line)
			continue
		}

		for _, open := range stack {
			if open == name {
				return nil, fmt.Errorf("%w: %s", domain.ErrIncludeCycle, strings.Join(append(stack, name), " -> "))
			}
		}

		if fsys == nil {
			return nil, fmt.Errorf("%w: %s (no include root)", domain.ErrIncludeNotFound, name)
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
				return nil, fmt.Errorf("%w: %s", domain.ErrIncludeNotFound, name)
			}
			return nil, fmt.Errorf("failed to read include %s: %w", name, err)
		}

		nested, err := expand(splitLines(string(data)), fsys, append(stack, name))
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

func includeTarget(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(trimmed, includeDirective)
	if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
		return "", false
	}
	name := strings.TrimSpace(rest)
	if name == "" {
		return "", false
	}
	return path.Clean(strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "./")), true
}

// splitLines normalizes line endings and trims the surrounding blank space of
// the whole text before splitting.
func splitLines(source string) []string {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.TrimSpace(source)
	if source == "" {
		return nil
	}
	return strings.Split(source, "\n")
}
