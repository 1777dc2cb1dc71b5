// Package indexer builds the JSON rule index from a Sigma rule checkout.
package indexer

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"rulescope/core"
)

// DefaultExcludes are directory names skipped during the walk.
var DefaultExcludes = []string{"regression_data", "tests", ".git", ".github"}

// Builder walks a rule source tree and assembles the index payload.
type Builder struct {
	source   string
	excludes map[string]struct{}
	logger   *zap.SugaredLogger
}

// NewBuilder creates a builder over the given source tree.
func NewBuilder(source string, excludes []string, logger *zap.SugaredLogger) *Builder {
	set := make(map[string]struct{}, len(excludes))
	for _, name := range excludes {
		set[name] = struct{}{}
	}
	return &Builder{source: source, excludes: set, logger: logger}
}

// ruleHead is the slice of a rule document the index cares about. Only
// scalar metadata is decoded; everything else stays raw.
type ruleHead struct {
	Title     string `yaml:"title"`
	ID        string `yaml:"id"`
	Status    string `yaml:"status"`
	Level     string `yaml:"level"`
	Date      string `yaml:"date"`
	Modified  string `yaml:"modified"`
	Logsource struct {
		Product  string `yaml:"product"`
		Category string `yaml:"category"`
		Service  string `yaml:"service"`
	} `yaml:"logsource"`
}

var (
	titleRe    = regexp.MustCompile(`(?i)^title:\s*(.+)$`)
	idRe       = regexp.MustCompile(`(?i)^id:\s*(.+)$`)
	statusRe   = regexp.MustCompile(`(?i)^status:\s*(.+)$`)
	levelRe    = regexp.MustCompile(`(?i)^level:\s*(.+)$`)
	dateRe     = regexp.MustCompile(`(?i)^date:\s*(.+)$`)
	modifiedRe = regexp.MustCompile(`(?i)^modified:\s*(.+)$`)

	logsourceRe     = regexp.MustCompile(`(?i)^logsource:\s*$`)
	indentedFieldRe = regexp.MustCompile(`^\s{2,}([A-Za-z0-9_]+):\s*(.+)$`)
)

// stripInlineComment cuts an unquoted # and everything after it. A # inside
// single or double quotes is part of the value.
func stripInlineComment(value string) string {
	inQuotes := false
	var quote rune
	for idx, char := range value {
		if char == '"' || char == '\'' {
			if !inQuotes {
				inQuotes = true
				quote = char
			} else if quote == char {
				inQuotes = false
			}
		}
		if char == '#' && !inQuotes {
			return strings.TrimRight(value[:idx], " \t")
		}
	}
	return strings.TrimSpace(value)
}

func unquote(value string) string {
	value = strings.Trim(value, `"`)
	return strings.Trim(value, "'")
}

// extractField returns the first line matching pattern, comment-stripped
// and unquoted.
func extractField(pattern *regexp.Regexp, lines []string) string {
	for _, line := range lines {
		if m := pattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return unquote(strings.TrimSpace(stripInlineComment(strings.TrimSpace(m[1]))))
		}
	}
	return ""
}

// extractLogsource scans the indented block under the first logsource key.
// Raw preserves every field in document order, which the decoded head
// cannot provide.
func extractLogsource(lines []string) core.Logsource {
	var ls core.Logsource
	var fields []string

	for idx, line := range lines {
		if !logsourceRe.MatchString(strings.TrimSpace(line)) {
			continue
		}
		for _, next := range lines[idx+1:] {
			if strings.TrimSpace(next) == "" {
				continue
			}
			if !strings.HasPrefix(next, "  ") {
				break
			}
			m := indentedFieldRe.FindStringSubmatch(next)
			if m == nil {
				continue
			}
			key := strings.TrimSpace(m[1])
			value := unquote(stripInlineComment(strings.TrimSpace(m[2])))
			fields = append(fields, key+":"+value)
			switch key {
			case "product":
				ls.Product = value
			case "category":
				ls.Category = value
			case "service":
				ls.Service = value
			}
		}
		break
	}

	ls.Raw = strings.Join(fields, ", ")
	return ls
}

// extractRule derives a rule record from one document. Decoding the head
// with yaml is preferred; documents that do not decode fall back to the
// line scanner so a malformed rule still lands in the index.
func (b *Builder) extractRule(relPath, content string) *core.Rule {
	rule := &core.Rule{Path: relPath, YAML: content}
	lines := strings.Split(content, "\n")

	var head ruleHead
	if err := yaml.Unmarshal([]byte(content), &head); err == nil {
		rule.Title = head.Title
		rule.ID = head.ID
		rule.Status = head.Status
		rule.Level = head.Level
		rule.Date = head.Date
		rule.Modified = head.Modified
	} else {
		b.logger.Debugw("Rule does not decode, using line scanner",
			"path", relPath, "error", err)
		rule.Title = extractField(titleRe, lines)
		rule.ID = extractField(idRe, lines)
		rule.Status = extractField(statusRe, lines)
		rule.Level = extractField(levelRe, lines)
		rule.Date = extractField(dateRe, lines)
		rule.Modified = extractField(modifiedRe, lines)
	}

	rule.Logsource = extractLogsource(lines)
	return rule
}

// Build walks the source tree and assembles the index.
func (b *Builder) Build() (*core.Index, error) {
	source, err := filepath.Abs(b.source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source: %w", err)
	}
	if _, err := os.Stat(source); err != nil {
		return nil, fmt.Errorf("source directory not found: %w", err)
	}

	var rules []*core.Rule
	err = filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := b.excludes[d.Name()]; skip && path != source {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warnw("Skipping unreadable rule", "path", path, "error", err)
			return nil
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		rules = append(rules, b.extractRule(filepath.ToSlash(rel), string(content)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk source: %w", err)
	}

	idx := &core.Index{
		Count:         len(rules),
		BuildTime:     time.Now().UTC().Format(time.RFC3339),
		GeneratedFrom: source,
		Rules:         rules,
	}
	idx.GitLastCommit, idx.GitLastCommitDate = readGitHead(source, b.logger)

	return idx, nil
}

// WriteIndex serializes the index to the output path, creating parent
// directories as needed.
func WriteIndex(idx *core.Index, output string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// readGitHead resolves the source checkout's head commit and its date, best
// effort. The sha comes from .git/HEAD (following one level of ref
// indirection), the date from the last .git/logs/HEAD entry.
func readGitHead(source string, logger *zap.SugaredLogger) (sha, date string) {
	head, err := os.ReadFile(filepath.Join(source, ".git", "HEAD"))
	if err != nil {
		return "", ""
	}

	ref := strings.TrimSpace(string(head))
	if rest, ok := strings.CutPrefix(ref, "ref: "); ok {
		resolved, err := os.ReadFile(filepath.Join(source, ".git", filepath.FromSlash(rest)))
		if err != nil {
			logger.Debugw("Failed to resolve git ref", "ref", rest, "error", err)
			return "", ""
		}
		sha = strings.TrimSpace(string(resolved))
	} else {
		sha = ref
	}

	if log, err := os.ReadFile(filepath.Join(source, ".git", "logs", "HEAD")); err == nil {
		entries := strings.Split(strings.TrimSpace(string(log)), "\n")
		last := entries[len(entries)-1]
		// old-sha new-sha name <email> unix-seconds zone\tmessage
		if before, _, ok := strings.Cut(last, "\t"); ok {
			last = before
		}
		if fields := strings.Fields(last); len(fields) >= 5 {
			if secs, err := strconv.ParseInt(fields[len(fields)-2], 10, 64); err == nil {
				date = time.Unix(secs, 0).UTC().Format(time.RFC3339)
			}
		}
	}

	return sha, date
}
