package ansible

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlaybookInfo summarizes one playbook found in the playbook directory.
type PlaybookInfo struct {
	Name      string
	Path      string
	TaskCount int
	Roles     []string

	// LastExitCode is the exit code of the most recent logged run, nil
	// when the playbook has never run.
	LastExitCode *int
}

// play is the subset of a playbook entry the discovery scan cares about.
type play struct {
	Name     string `yaml:"name"`
	Hosts    string `yaml:"hosts"`
	Tasks    []any  `yaml:"tasks"`
	PreTasks []any  `yaml:"pre_tasks"`
	Roles    []any  `yaml:"roles"`
	Handlers []any  `yaml:"handlers"`
}

// DiscoverPlaybooks scans dir for top-level .yml/.yaml playbooks and
// returns them sorted by name. Files that do not parse as a playbook are
// skipped. logDir, when non-empty, is consulted for each playbook's most
// recent run outcome.
func DiscoverPlaybooks(dir, logDir string) ([]PlaybookInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading playbook directory: %w", err)
	}

	var infos []PlaybookInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}

		path := filepath.Join(dir, e.Name())
		info, ok := inspectPlaybook(path)
		if !ok {
			continue
		}
		if logDir != "" {
			info.LastExitCode = lastRunExitCode(logDir, info.Name)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func inspectPlaybook(path string) (PlaybookInfo, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PlaybookInfo{}, false
	}

	var plays []play
	if err := yaml.Unmarshal(data, &plays); err != nil || len(plays) == 0 {
		return PlaybookInfo{}, false
	}

	info := PlaybookInfo{
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path: path,
	}

	roleSeen := map[string]bool{}
	playbookLooksValid := false
	for _, p := range plays {
		if p.Hosts != "" {
			playbookLooksValid = true
		}
		info.TaskCount += len(p.PreTasks) + len(p.Tasks) + len(p.Handlers)

		for _, r := range p.Roles {
			name := roleName(r)
			if name != "" && !roleSeen[name] {
				roleSeen[name] = true
				info.Roles = append(info.Roles, name)
			}
		}
	}
	return info, playbookLooksValid
}

// roleName extracts the role name from either the string or the mapping
// form of a roles list entry.
func roleName(entry any) string {
	switch v := entry.(type) {
	case string:
		return v
	case map[string]any:
		if name, ok := v["role"].(string); ok {
			return name
		}
	}
	return ""
}

// lastRunExitCode finds the newest run log for a playbook and parses its
// exit code footer.
func lastRunExitCode(logDir, playbook string) *int {
	matches, err := filepath.Glob(filepath.Join(logDir, playbook+"-*.log"))
	if err != nil || len(matches) == 0 {
		return nil
	}

	newest := ""
	var newestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = m, mod
		}
	}

	data, err := os.ReadFile(newest)
	if err != nil {
		return nil
	}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if after, ok := strings.CutPrefix(line, "# Exit code: "); ok {
			if code, err := strconv.Atoi(strings.TrimSpace(after)); err == nil {
				return &code
			}
		}
	}
	return nil
}
