package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/open-edge-platform/appliance-update-tool/internal/catalog"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/shell"
	"github.com/open-edge-platform/appliance-update-tool/internal/version"
)

// CommandChannel queries the device's package manager through a shell
// command. The command prints a JSON object with "version" and "url" (and
// optionally "filename") when an update exists, and nothing or "{}" when not.
type CommandChannel struct {
	Executor shell.Executor
	// Command is a template such as "synopkg checkupdate {name}".
	Command string
	Sudo    bool
}

type localReply struct {
	Version  string `json:"version"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// CheckLocalUpdate runs the configured command for name.
func (c *CommandChannel) CheckLocalUpdate(ctx context.Context, name string) (*LocalUpdate, error) {
	if c.Command == "" {
		return nil, nil
	}
	exec := c.Executor
	if exec == nil {
		exec = shell.Default
	}

	cmd := shell.Expand(c.Command, map[string]string{"name": name})
	out, err := exec.Exec(ctx, cmd, c.Sudo)
	if err != nil {
		return nil, fmt.Errorf("local update check for %s: %w", name, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	var reply localReply
	if err := json.Unmarshal([]byte(out), &reply); err != nil {
		return nil, fmt.Errorf("decoding local update reply for %s: %w", name, err)
	}
	if reply.Version == "" || reply.URL == "" {
		return nil, nil
	}
	k := version.Parse(reply.Version)
	if !k.IsValid() {
		return nil, fmt.Errorf("local update reply for %s: invalid version %q", name, reply.Version)
	}
	return &LocalUpdate{
		Version:  k,
		Artifact: catalog.ArtifactRef{Filename: reply.Filename, URL: reply.URL},
	}, nil
}
