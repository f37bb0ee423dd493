package cli

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	perrors "github.com/michael-lorenzo/pypi-dependency-graph/pkg/errors"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/integrations"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
)

// showCommand creates the show command, which prints one stored package.
func (c *CLI) showCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <package>",
		Short: "Print a package from the local store",
		Example: `  pypigraph show requests
  pypigraph show Flask_SQLAlchemy --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := perrors.ValidatePackageName(args[0]); err != nil {
				return err
			}
			name := integrations.NormalizePkgName(args[0])

			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.Get(ctx, name)
			if errors.Is(err, store.ErrNotFound) {
				return perrors.New(perrors.ErrCodePackageNotFound, "%s is not in the store", name)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(recordView(rec))
			}
			printRecord(cmd, rec)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	return cmd
}

type recordJSON struct {
	Name         string          `json:"name"`
	LastSerial   int64           `json:"last_serial"`
	Stub         bool            `json:"stub"`
	Dependencies []string        `json:"dependencies"`
	Info         json.RawMessage `json:"info,omitempty"`
}

func recordView(r *store.Record) recordJSON {
	deps := r.Dependencies()
	if deps == nil {
		deps = []string{}
	}
	return recordJSON{
		Name:         r.Name,
		LastSerial:   r.LastSerial,
		Stub:         r.IsStub(),
		Dependencies: deps,
		Info:         r.Info,
	}
}

// infoSummary is the part of a PyPI info document worth printing.
type infoSummary struct {
	Version string `json:"version"`
	Summary string `json:"summary"`
}

func printRecord(cmd *cobra.Command, r *store.Record) {
	out := cmd.OutOrStdout()
	printKeyValue(out, "name", r.Name)
	printKeyValue(out, "serial", strconv.FormatInt(r.LastSerial, 10))

	if r.IsStub() {
		printKeyValue(out, "metadata", styleStub.Render("missing"))
		printDetail(out, "the last fetch failed; the next sync retries it")
		return
	}

	var info infoSummary
	if json.Unmarshal(r.Info, &info) == nil {
		if info.Version != "" {
			printKeyValue(out, "version", info.Version)
		}
		if info.Summary != "" {
			printKeyValue(out, "summary", info.Summary)
		}
	}

	deps := r.Dependencies()
	if len(deps) == 0 {
		printKeyValue(out, "requires", StyleDim.Render("nothing"))
		return
	}
	printKeyValue(out, "requires", strings.Join(deps, ", "))
}
