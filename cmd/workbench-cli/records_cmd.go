package main

import (
	"github.com/spf13/cobra"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
	"github.com/bigkaa/licitaciones-workbench/internal/editor"
	"github.com/bigkaa/licitaciones-workbench/internal/orchestrator"
)

type showOutput struct {
	Licitacion model.Licitacion `json:"licitacion"`
	Warnings   []editor.Warning `json:"warnings,omitempty"`
	Orphans    int              `json:"orphans,omitempty"`
}

func newShowCmd(flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a tender with its nested awards and consortium members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			ed, err := editor.LoadForEdit(cmd.Context(), client, args[0], flags.logger())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), showOutput{
				Licitacion: ed.Draft(),
				Warnings:   ed.Warnings(),
				Orphans:    ed.Orphans(),
			})
		},
	}
}

func newDuplicateCmd(flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate ID",
		Short: "Duplicate a tender; the copy gets a new id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			o := orchestrator.New(client, nil, 0, flags.logger())
			defer o.Stop()

			newID, err := o.Duplicate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{"id": args[0], "new_id": newID})
		},
	}
}

func newDeleteCmd(flags *clientFlags) *cobra.Command {
	var authCode string

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a tender (requires an authorization code)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			o := orchestrator.New(client, nil, 0, flags.logger())
			defer o.Stop()

			if err := o.RequestDelete(model.Licitacion{IDConvocatoria: args[0]}); err != nil {
				return err
			}
			if err := o.ConfirmDelete(cmd.Context(), authCode); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{"id": args[0], "status": "deleted"})
		},
	}

	cmd.Flags().StringVar(&authCode, "auth-code", "", "Authorization code (required)")
	_ = cmd.MarkFlagRequired("auth-code")
	return cmd
}
