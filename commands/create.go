package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/mayo-dayo/manage/instance"
	"github.com/mayo-dayo/manage/versioning"
)

const (
	flagName           = "name"
	flagPort           = "port"
	flagAuthentication = "authentication"
	flagTLSCert        = "tls-cert"
	flagTLSKey         = "tls-key"
	flagVersion        = "version"
)

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create and start a new server",
		Example: `  # Newest supported version with TLS
  manage create --port 443 --tls-cert cert.pem --tls-key key.pem

  # Pin a version and allow anonymous access
  manage create --name jukebox --version 0.3.1 --authentication=false`,
		Args: cobra.NoArgs,
		RunE: runCreate,
	}

	cmd.Flags().String(flagName, "", "server name (generated when empty)")
	cmd.Flags().Uint16(flagPort, instance.DefaultPort, "port the server listens on")
	cmd.Flags().Bool(flagAuthentication, true, "require users to authenticate")
	cmd.Flags().String(flagTLSCert, "", "path to a PEM certificate")
	cmd.Flags().String(flagTLSKey, "", "path to the PEM private key of the certificate")
	cmd.Flags().String(flagVersion, "", "server version (newest compatible when empty)")
	cmd.MarkFlagsRequiredTogether(flagTLSCert, flagTLSKey)

	return cmd
}

func runCreate(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString(flagName)
	port, _ := cmd.Flags().GetUint16(flagPort)
	authentication, _ := cmd.Flags().GetBool(flagAuthentication)
	certPath, _ := cmd.Flags().GetString(flagTLSCert)
	keyPath, _ := cmd.Flags().GetString(flagTLSKey)
	pinned, _ := cmd.Flags().GetString(flagVersion)

	if name == "" {
		name = instance.GenerateName()
	}

	params := instance.Parameters{
		Name:                   name,
		Port:                   port,
		AuthenticationRequired: authentication,
	}

	if certPath != "" {
		tls, err := readTLSMaterial(certPath, keyPath)
		if err != nil {
			return err
		}
		params.TLS = tls
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		version, err := workloadVersion(ctx, a, pinned)
		if err != nil {
			return err
		}
		params.WorkloadVersion = version

		inst, err := a.orchestrator.Create(ctx, params)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Server %s (version %s) is %s on port %d.\n",
			inst.Name(), version, inst.State, params.Port)
		return err
	})
}

func workloadVersion(ctx context.Context, a *app, pinned string) (*semver.Version, error) {
	if pinned == "" {
		return a.resolver.LatestCompatibleWorkloadVersion(ctx)
	}
	v, ok := versioning.ParseTag(pinned)
	if !ok {
		return nil, fmt.Errorf("invalid version %q", pinned)
	}
	return v, nil
}

func readTLSMaterial(certPath, keyPath string) (*instance.TLSMaterial, error) {
	cert, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return instance.NewTLSMaterial(string(cert), string(key))
}
