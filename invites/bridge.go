// Package invites manages the invites stored inside a running instance by executing fixed
// scripts in its container.
package invites

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mayo-dayo/manage/engine"
)

var (
	// ErrRemoteExecutionDetached is returned when an exec ran without attached output.
	ErrRemoteExecutionDetached = errors.New("remote execution detached")

	// ErrMalformedRemoteOutput is returned when script output has an unexpected shape.
	ErrMalformedRemoteOutput = errors.New("malformed remote output")

	// ErrInvalidInvite is returned for invite arguments the store would reject.
	ErrInvalidInvite = errors.New("invalid invite")
)

// Record is one invite row.
type Record struct {
	ID            string  `json:"id"`
	RemainingUses *uint32 `json:"uses"` // nil means unlimited
	Permissions   uint32  `json:"perms"`
}

// Uses renders RemainingUses for display.
func (r Record) Uses() string {
	if r.RemainingUses == nil {
		return "unlimited"
	}
	return strconv.FormatUint(uint64(*r.RemainingUses), 10)
}

// Executor runs commands inside containers.
type Executor interface {
	Exec(ctx context.Context, containerID string, req engine.ExecRequest) (*engine.ExecSession, error)
}

// Bridge runs invite scripts against an instance's database.
type Bridge struct {
	executor     Executor
	databasePath string
	newID        func() (uuid.UUID, error)
}

// NewBridge creates a bridge for databases at databasePath inside the container.
func NewBridge(executor Executor, databasePath string) *Bridge {
	return &Bridge{
		executor:     executor,
		databasePath: databasePath,
		newID:        uuid.NewV7,
	}
}

// Create inserts an invite and returns its id. A nil uses means unlimited.
func (b *Bridge) Create(ctx context.Context, containerID string, uses *uint32, permissions uint32) (string, error) {
	if uses != nil && *uses == 0 {
		return "", fmt.Errorf("%w: uses must be greater than zero", ErrInvalidInvite)
	}

	id, err := b.newID()
	if err != nil {
		return "", fmt.Errorf("failed to generate invite id: %w", err)
	}

	var usesValue string
	if uses != nil {
		usesValue = strconv.FormatUint(uint64(*uses), 10)
	}

	out, err := b.run(ctx, containerID, ScriptCreate,
		EnvInviteID+"="+id.String(),
		EnvInviteUses+"="+usesValue,
		EnvInvitePerms+"="+strconv.FormatUint(uint64(permissions), 10),
	)
	if err != nil {
		return "", err
	}

	got := string(bytes.TrimSpace(out))
	if got != id.String() {
		return "", fmt.Errorf("%w: create script printed %q instead of invite id %s, which may already exist",
			ErrMalformedRemoteOutput, got, id)
	}
	return got, nil
}

// List returns every invite. An empty store yields an empty slice.
func (b *Bridge) List(ctx context.Context, containerID string) ([]Record, error) {
	out, err := b.run(ctx, containerID, ScriptList)
	if err != nil {
		return nil, err
	}

	records := []Record{}
	if err := json.Unmarshal(out, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to parse invite list: %w", ErrMalformedRemoteOutput, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Delete removes the invite with id. Deleting an id that does not exist succeeds.
func (b *Bridge) Delete(ctx context.Context, containerID, id string) error {
	_, err := b.run(ctx, containerID, ScriptDelete, EnvInviteID+"="+id)
	return err
}

func (b *Bridge) run(ctx context.Context, containerID string, script Script, env ...string) ([]byte, error) {
	zerolog.Ctx(ctx).Debug().Str("container", containerID).Stringer("script", script).Msg("Running invite script")

	session, err := b.executor.Exec(ctx, containerID, engine.ExecRequest{
		Cmd: script.Command(),
		Env: append([]string{EnvDatabasePath + "=" + b.databasePath}, env...),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to exec invite %s script: %w", script, err)
	}
	if session.Detached {
		return nil, fmt.Errorf("invite %s script: %w", script, ErrRemoteExecutionDetached)
	}
	defer func() { _ = session.Output.Close() }()

	out, errOut, err := engine.DrainStreams(session.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to read output of invite %s script: %w", script, err)
	}
	if len(errOut) > 0 {
		zerolog.Ctx(ctx).Warn().Stringer("script", script).Str("stderr", string(bytes.TrimSpace(errOut))).
			Msg("Invite script wrote to stderr")
	}
	return out, nil
}
