package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mediajob/internal/job"
	"mediajob/internal/logging"
)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Manage content in the configured datastore",
	}
	storeCmd.AddCommand(newStorePutCommand(ctx))
	storeCmd.AddCommand(newStoreGetCommand(ctx))
	storeCmd.AddCommand(newStoreRemoveCommand(ctx))
	return storeCmd
}

func newStorePutCommand(ctx *commandContext) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Store a local file and print its uid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			j, err := rt.Jobs.FetchFile(args[0])
			if err != nil {
				return err
			}
			defer j.Close()
			if name != "" {
				if _, err := j.Apply(cmd.Context()); err != nil {
					return err
				}
				j.SetName(name)
			}
			uid, err := j.Store(cmd.Context(), rt.Store)
			if err != nil {
				return err
			}
			ctx.logger(cmd.Context()).Info("content stored",
				logging.String(logging.FieldUID, uid),
				logging.String("source", args[0]),
				logging.String("datastore", rt.Config.Datastore.Backend),
			)
			fmt.Fprintln(cmd.OutOrStdout(), uid)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name recorded with the content (defaults to the file name)")
	return cmd
}

func newStoreGetCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <uid>",
		Short: "Write stored content to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			j, err := rt.Jobs.Fetch(args[0])
			if err != nil {
				return err
			}
			defer j.Close()
			return copyJobOutput(cmd, j, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write content to a file instead of stdout")
	return cmd
}

func copyJobOutput(cmd *cobra.Command, j *job.Job, output string) error {
	obj, err := j.Content(cmd.Context())
	if err != nil {
		return err
	}
	if output != "" {
		file, err := obj.ToFile(output)
		if err != nil {
			return err
		}
		return file.Close()
	}
	reader, err := obj.Reader()
	if err != nil {
		return err
	}
	defer reader.Close()
	if _, err := io.Copy(cmd.OutOrStdout(), reader); err != nil {
		return fmt.Errorf("write content: %w", err)
	}
	return nil
}

func newStoreRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <uid>",
		Aliases: []string{"destroy"},
		Short:   "Remove stored content",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			if err := rt.Jobs.Destroy(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}
