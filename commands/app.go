package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mayo-dayo/manage/config"
	"github.com/mayo-dayo/manage/discovery"
	"github.com/mayo-dayo/manage/engine"
	"github.com/mayo-dayo/manage/instance"
	"github.com/mayo-dayo/manage/invites"
	"github.com/mayo-dayo/manage/lifecycle"
	"github.com/mayo-dayo/manage/logging"
	"github.com/mayo-dayo/manage/progress"
	"github.com/mayo-dayo/manage/registry"
	"github.com/mayo-dayo/manage/resolver"
)

// Replaced in tests.
var (
	newEngine = func(ctx context.Context, host string) (engine.Engine, error) {
		return engine.NewDockerClient(ctx, host)
	}
	newTagLister = func(cfg *config.Config) resolver.TagLister {
		return registry.NewClient(cfg.Coordinates(), cfg.RegistryOptions()...)
	}
)

// app wires the components for one command invocation.
type app struct {
	cfg          *config.Config
	engine       engine.Engine
	resolver     *resolver.Resolver
	discovery    *discovery.Discovery
	orchestrator *lifecycle.Orchestrator
	invites      *invites.Bridge
}

func newApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()

	cfg, err := configFrom(ctx)
	if err != nil {
		return nil, err
	}

	contract, err := cfg.Contract()
	if err != nil {
		return nil, err
	}

	eng, err := newEngine(ctx, cfg.DockerHost)
	if err != nil {
		return nil, err
	}

	stderr := cmd.ErrOrStderr()
	display := func() progress.Display {
		if logging.IsTerminal(stderr) {
			return progress.NewBarDisplay(stderr)
		}
		return progress.NewLogDisplay(*loggerFrom(cmd))
	}

	res := resolver.New(contract, cfg.Coordinates(), newTagLister(cfg), eng, resolver.WithProgress(display))
	settings := cfg.Settings()

	return &app{
		cfg:          cfg,
		engine:       eng,
		resolver:     res,
		discovery:    discovery.New(eng, contract),
		orchestrator: lifecycle.NewOrchestrator(eng, res, settings),
		invites:      invites.NewBridge(eng, settings.DatabasePath()),
	}, nil
}

func (a *app) Close() error {
	return a.engine.Close()
}

// find returns the managed instance called name.
func (a *app) find(ctx context.Context, name string) (instance.Instance, error) {
	inst, found, err := a.discovery.FindByName(ctx, name)
	if err != nil {
		return instance.Instance{}, err
	}
	if !found {
		return instance.Instance{}, fmt.Errorf("no managed instance named %q", name)
	}
	return inst, nil
}

// withApp runs fn with a wired app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(cmd.Context(), a)
}
