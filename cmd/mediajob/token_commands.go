package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediajob/internal/job"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Encode, decode, sign and verify job tokens",
	}

	tokenCmd.AddCommand(newTokenEncodeCommand(ctx))
	tokenCmd.AddCommand(newTokenDecodeCommand(ctx))
	tokenCmd.AddCommand(newTokenSignCommand(ctx))
	tokenCmd.AddCommand(newTokenVerifyCommand(ctx))

	return tokenCmd
}

func newTokenEncodeCommand(ctx *commandContext) *cobra.Command {
	var sign bool
	cmd := &cobra.Command{
		Use:   "encode <json-steps>",
		Short: "Encode a JSON step array such as '[[\"f\",\"uid\"],[\"e\",\"gz\"]]' into a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			steps, err := decodeStepsJSON(args[0])
			if err != nil {
				return err
			}
			j, err := rt.Jobs.FromArray(steps)
			if err != nil {
				return err
			}
			token, err := j.Serialize()
			if err != nil {
				return err
			}
			if !sign {
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}
			if err := rt.Config.RequireSecret(); err != nil {
				return err
			}
			sha, err := j.SHA()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", token, sha)
			return nil
		},
	}
	cmd.Flags().BoolVar(&sign, "sign", false, "Also print the token signature")
	return cmd
}

func decodeStepsJSON(raw string) (any, error) {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	var steps any
	if err := decoder.Decode(&steps); err != nil {
		return nil, fmt.Errorf("parse steps: %w", err)
	}
	return steps, nil
}

type stepView struct {
	Index        int    `json:"index"`
	Step         string `json:"step"`
	Abbreviation string `json:"abbreviation"`
	Args         []any  `json:"args"`
}

func newTokenDecodeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "decode <token>",
		Short: "Show the steps encoded in a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			j, err := rt.Jobs.Deserialize(args[0])
			if err != nil {
				return err
			}
			views := stepViews(j.Steps())
			if jsonOut {
				return writeJSON(cmd, views)
			}
			fmt.Fprintln(cmd.OutOrStdout(), stepTable(views, isTerminal(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output steps as JSON")
	return cmd
}

func stepViews(steps []job.Step) []stepView {
	views := make([]stepView, 0, len(steps))
	for i, step := range steps {
		views = append(views, stepView{
			Index:        i + 1,
			Step:         step.Name(),
			Abbreviation: step.Abbreviation(),
			Args:         step.Args(),
		})
	}
	return views
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		encoded, err := json.Marshal(arg)
		if err != nil {
			parts = append(parts, fmt.Sprintf("%v", arg))
			continue
		}
		parts = append(parts, string(encoded))
	}
	return strings.Join(parts, " ")
}

func newTokenSignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sign <token>",
		Short: "Print the signature for a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			if err := rt.Config.RequireSecret(); err != nil {
				return err
			}
			j, err := rt.Jobs.Deserialize(args[0])
			if err != nil {
				return err
			}
			sha, err := j.SHA()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sha)
			return nil
		},
	}
}

func newTokenVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token> <sha>",
		Short: "Check a token signature",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			if err := rt.Config.RequireSecret(); err != nil {
				return err
			}
			j, err := rt.Jobs.Deserialize(args[0])
			if err != nil {
				return err
			}
			if _, err := j.ValidateSHA(args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

// loadSignedJob deserializes token and checks sha when one is given. A
// configured secret makes the signature mandatory.
func loadSignedJob(ctx *commandContext, token, sha string) (*job.Job, error) {
	rt, err := ctx.ensureRuntime()
	if err != nil {
		return nil, err
	}
	j, err := rt.Jobs.Deserialize(token)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sha) == "" && rt.Config.Job.Secret == "" {
		return j, nil
	}
	return j.ValidateSHA(sha)
}
