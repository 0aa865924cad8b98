package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/lakebench/internal/config"
	"github.com/systmms/lakebench/internal/engine"
	lberrors "github.com/systmms/lakebench/internal/errors"
	"github.com/systmms/lakebench/internal/secrets"
	"github.com/systmms/lakebench/internal/workspace"
)

// serverValidity is how long the control plane honors a minted credential.
// Rotation settings must leave headroom under it or queries start failing
// mid-benchmark with authentication errors.
const serverValidity = 60 * time.Minute

// headroomWarn flags rotation settings that technically fit inside the
// validity window but leave too little slack for a slow mint.
const headroomWarn = 5 * time.Minute

const (
	statusOK   = "ok"
	statusWarn = "warn"
	statusFail = "fail"
)

func NewDoctorCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, credentials, and database connectivity",
		Long: `Verify that lakebench can reach everything a benchmark needs.

This command checks:
- Configuration completeness
- Secret source reachability (keyring, AWS, ...)
- Control-plane authentication
- Database instance state
- Database connectivity and pool health
- Rotation settings against the credential validity window`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			logger := app.logger()

			logger.Info("Checking lakebench configuration...")

			results := make([]checkResult, 0, 8)

			resolver := secrets.NewResolver(logger)
			cfg, err := config.FromEnv(ctx, resolver)
			if err != nil {
				results = append(results, configCheckFailure(err))
				displayCheckResults(results)
				fmt.Printf("\nSummary: 0/%d checks passed\n", len(results))
				return fmt.Errorf("configuration is incomplete")
			}
			results = append(results, checkResult{
				Name:    "Configuration",
				Status:  statusOK,
				Message: fmt.Sprintf("instance %q on %s", cfg.Instance, cfg.WorkspaceHost),
			})

			// Secret sources only need probing when the config actually
			// references them.
			schemes := referencedSchemes()
			for _, scheme := range sortedSchemes(schemes) {
				results = append(results, checkSecretSource(ctx, resolver, scheme))
			}
			if schemes[secrets.SchemeAWSSM] || schemes[secrets.SchemeAWSSSM] {
				results = append(results, checkAWSIdentity(ctx))
			}

			client, err := app.workspaceClient(cfg)
			if err != nil {
				results = append(results, checkResult{
					Name:    "Control plane",
					Status:  statusFail,
					Message: firstLine(err.Error()),
				})
				displayCheckResults(results)
				return summarize(results)
			}
			defer client.Close()

			controlPlaneOK := true
			if user, err := client.CurrentUser(ctx); err != nil {
				controlPlaneOK = false
				results = append(results, checkResult{
					Name:        "Control plane",
					Status:      statusFail,
					Message:     firstLine(err.Error()),
					Suggestions: controlPlaneSuggestions(err),
				})
			} else {
				results = append(results, checkResult{
					Name:    "Control plane",
					Status:  statusOK,
					Message: fmt.Sprintf("authenticated as %s", user.UserName),
				})
			}

			// Instance state and database connectivity depend on a working
			// control plane; probing them through a dead one repeats the
			// same failure three times.
			instanceOK := false
			if controlPlaneOK {
				var res checkResult
				res, instanceOK = checkInstance(ctx, client, cfg.Instance)
				results = append(results, res)
			}
			if instanceOK {
				results = append(results, app.checkDatabase(ctx, cfg, client))
			}

			results = append(results, checkRotationHeadroom(cfg))

			displayCheckResults(results)
			if err := summarize(results); err != nil {
				return err
			}

			logger.Info("✓ Ready to benchmark!")
			return nil
		},
	}

	return cmd
}

// checkResult is one row of doctor output.
type checkResult struct {
	Name        string
	Status      string // ok, warn, fail
	Message     string
	Suggestions []string
}

func configCheckFailure(err error) checkResult {
	res := checkResult{Name: "Configuration", Status: statusFail, Message: firstLine(err.Error())}

	var cfgErr lberrors.ConfigError
	if errors.As(err, &cfgErr) && len(cfgErr.MissingFields) > 0 {
		res.Message = "missing required settings: " + strings.Join(cfgErr.MissingFields, ", ")
		for _, field := range cfgErr.MissingFields {
			res.Suggestions = append(res.Suggestions, fmt.Sprintf("export %s=...", field))
		}
		if cfgErr.MissingFields[0] == config.EnvWorkspaceToken || len(cfgErr.MissingFields) > 1 {
			res.Suggestions = append(res.Suggestions,
				"Store the token once with 'lakebench login --token-stdin' and export the printed reference")
		}
	}
	return res
}

// referencedSchemes collects the secret schemes the raw environment points
// at, before any resolution happens. Literal values contribute nothing.
func referencedSchemes() map[string]bool {
	schemes := make(map[string]bool)
	for _, name := range []string{config.EnvWorkspaceToken, config.EnvPostgresDSN, config.EnvMySQLDSN} {
		value := os.Getenv(name)
		if !secrets.IsReference(value) {
			continue
		}
		ref, err := secrets.ParseRef(value)
		if err != nil {
			continue // FromEnv already reported the malformed reference
		}
		schemes[ref.Scheme] = true
	}
	return schemes
}

func checkSecretSource(ctx context.Context, resolver *secrets.Resolver, scheme string) checkResult {
	name := fmt.Sprintf("Secrets (%s)", scheme)
	if err := resolver.Check(ctx, scheme); err != nil {
		return checkResult{
			Name:        name,
			Status:      statusFail,
			Message:     firstLine(err.Error()),
			Suggestions: secretSourceSuggestions(scheme),
		}
	}
	return checkResult{Name: name, Status: statusOK, Message: "source is reachable"}
}

func secretSourceSuggestions(scheme string) []string {
	switch scheme {
	case secrets.SchemeKeyring:
		return []string{
			"Store the token first: lakebench login --token-stdin",
			"On headless hosts the OS keyring may be unavailable; use env:// or aws-sm:// instead",
		}
	case secrets.SchemeAWSSM, secrets.SchemeAWSSSM:
		return []string{
			"Configure AWS credentials via CLI, env vars, or IAM roles",
			"Verify with: aws sts get-caller-identity",
		}
	default:
		return []string{fmt.Sprintf("Check the %s:// reference and the backing store's credentials", scheme)}
	}
}

func checkAWSIdentity(ctx context.Context) checkResult {
	identity, err := secrets.AWSCallerIdentity(ctx, nil)
	if err != nil {
		return checkResult{
			Name:    "AWS identity",
			Status:  statusFail,
			Message: firstLine(err.Error()),
			Suggestions: []string{
				"Run: aws configure",
				"Or set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY",
			},
		}
	}
	return checkResult{
		Name:    "AWS identity",
		Status:  statusOK,
		Message: fmt.Sprintf("account %s (%s)", identity.Account, identity.ARN),
	}
}

func controlPlaneSuggestions(err error) []string {
	if workspace.IsUnauthorized(err) {
		return []string{
			"The access token was rejected; generate a fresh one",
			"Store it with 'lakebench login --token-stdin'",
		}
	}
	return []string{
		fmt.Sprintf("Verify %s points at your workspace", config.EnvWorkspaceHost),
		"Check network access to the workspace host",
	}
}

func checkInstance(ctx context.Context, client *workspace.Client, name string) (checkResult, bool) {
	inst, err := client.GetDatabaseInstance(ctx, name)
	if err != nil {
		res := checkResult{Name: "Instance", Status: statusFail, Message: firstLine(err.Error())}
		if workspace.IsNotFound(err) {
			res.Message = fmt.Sprintf("instance %q not found", name)
			res.Suggestions = []string{"Run 'lakebench instances' to list what this token can see"}
		}
		return res, false
	}

	if inst.State != workspace.InstanceAvailable {
		res := checkResult{
			Name:    "Instance",
			Status:  statusWarn,
			Message: fmt.Sprintf("%s is %s", inst.Name, inst.State),
		}
		if inst.Stopped {
			res.Suggestions = []string{"Start the instance from the workspace console, then re-run doctor"}
		} else {
			res.Suggestions = []string{"Wait for the instance to reach AVAILABLE, then re-run doctor"}
		}
		return res, false
	}

	msg := fmt.Sprintf("%s is AVAILABLE", inst.Name)
	if inst.PGVersion != "" {
		msg += fmt.Sprintf(" (PG %s, %s)", inst.PGVersion, inst.Capacity)
	}
	return checkResult{Name: "Instance", Status: statusOK, Message: msg}, true
}

// checkDatabase mints one credential, opens the pool, and pings through it.
// This exercises the same path a benchmark run takes.
func (a *App) checkDatabase(ctx context.Context, cfg config.Config, client *workspace.Client) checkResult {
	mgr, err := a.newManager(ctx, cfg, client)
	if err != nil {
		return checkResult{
			Name:    "Database",
			Status:  statusFail,
			Message: firstLine(err.Error()),
			Suggestions: []string{
				"The control plane refused to mint a database credential",
				"Check that the token's principal has access to the instance",
			},
		}
	}
	defer mgr.Close()

	eng, err := a.managedEngine(ctx, cfg, mgr)
	if err != nil {
		return checkResult{Name: "Database", Status: statusFail, Message: firstLine(err.Error())}
	}
	defer func() { _ = eng.Close() }()

	health := engine.CheckHealth(ctx, eng, engine.DefaultHealthConfig())
	switch {
	case !health.Healthy():
		return checkResult{
			Name:    "Database",
			Status:  statusFail,
			Message: strings.Join(health.Messages, "; "),
			Suggestions: []string{
				"Check that the instance endpoint is reachable from this host",
				fmt.Sprintf("Confirm %s and %s match the instance", config.EnvDatabase, config.EnvPort),
			},
		}
	case health.State == engine.HealthDegraded:
		return checkResult{
			Name:    "Database",
			Status:  statusWarn,
			Message: strings.Join(health.Messages, "; "),
		}
	default:
		return checkResult{
			Name:   "Database",
			Status: statusOK,
			Message: fmt.Sprintf("ping %v, pool %d/%d in use",
				health.PingLatency.Round(time.Millisecond), health.Pool.InUse, health.Pool.Max),
		}
	}
}

// checkRotationHeadroom compares the rotation settings against the server's
// validity window. The effective credential age is bounded by whichever of
// rotation interval and max age is larger.
func checkRotationHeadroom(cfg config.Config) checkResult {
	worst := cfg.RotationInterval
	if cfg.CredentialMaxAge > worst {
		worst = cfg.CredentialMaxAge
	}
	margin := serverValidity - worst

	switch {
	case margin <= 0:
		return checkResult{
			Name:   "Rotation headroom",
			Status: statusFail,
			Message: fmt.Sprintf("settings let credentials reach %v but the control plane only honors them for %v",
				worst, serverValidity),
			Suggestions: []string{
				fmt.Sprintf("Lower %s and %s below %v",
					config.EnvRotationInterval, config.EnvCredentialMaxAge, serverValidity),
			},
		}
	case margin < headroomWarn:
		return checkResult{
			Name:   "Rotation headroom",
			Status: statusWarn,
			Message: fmt.Sprintf("only %v of margin before the %v validity window",
				margin, serverValidity),
			Suggestions: []string{
				fmt.Sprintf("A slow mint could push a credential past expiry; consider lowering %s",
					config.EnvRotationInterval),
			},
		}
	default:
		return checkResult{
			Name:    "Rotation headroom",
			Status:  statusOK,
			Message: fmt.Sprintf("%v of margin before the %v validity window", margin, serverValidity),
		}
	}
}

// displayCheckResults shows check outcomes in a formatted table, with
// suggestions listed under it for anything that did not pass clean.
func displayCheckResults(results []checkResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "CHECK\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-----\t------\t-------\n")

	for _, result := range results {
		status := result.Status
		switch result.Status {
		case statusOK:
			status = "✓ " + status
		case statusWarn:
			status = "⚠ " + status
		case statusFail:
			status = "✗ " + status
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", result.Name, status, result.Message)
	}

	_ = w.Flush()

	for _, result := range results {
		if result.Status == statusOK || len(result.Suggestions) == 0 {
			continue
		}
		fmt.Printf("\n%s suggestions:\n", result.Name)
		for _, suggestion := range result.Suggestions {
			fmt.Printf("  • %s\n", suggestion)
		}
	}
}

func summarize(results []checkResult) error {
	passed := 0
	for _, result := range results {
		if result.Status != statusFail {
			passed++
		}
	}
	fmt.Printf("\nSummary: %d/%d checks passed\n", passed, len(results))
	if passed < len(results) {
		return fmt.Errorf("some checks failed")
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// sortedSchemes gives the secret-source checks a stable display order.
func sortedSchemes(schemes map[string]bool) []string {
	out := make([]string, 0, len(schemes))
	for scheme := range schemes {
		out = append(out, scheme)
	}
	sort.Strings(out)
	return out
}
