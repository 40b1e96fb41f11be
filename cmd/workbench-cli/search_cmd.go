package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
	"github.com/bigkaa/licitaciones-workbench/internal/facets"
	"github.com/bigkaa/licitaciones-workbench/internal/filters"
	"github.com/bigkaa/licitaciones-workbench/internal/paginator"
)

func newSearchCmd(flags *clientFlags) *cobra.Command {
	var (
		query      string
		reportType string
		page       int
		limit      int
		values     = make(map[model.FilterField]*string)
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Fetch one page of the report for the given filters",
		Example: "  workbench-cli search --departamento LIMA --anio 2024 --limit 50\n" +
			"  workbench-cli search --query 'departamento=CUSCO&type=garantias' --page 2",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := url.ParseQuery(query)
			if err != nil {
				return fmt.Errorf("invalid --query: %w", err)
			}
			f, rt, err := filters.DecodeQuery(q)
			if err != nil {
				return err
			}
			for field, v := range values {
				if cmd.Flags().Changed(string(field)) {
					f.Set(field, *v)
				}
			}
			if cmd.Flags().Changed("type") || rt == "" {
				if rt, err = model.ParseReportType(reportType); err != nil {
					return err
				}
			}

			client, err := flags.client()
			if err != nil {
				return err
			}
			p, err := paginator.New(client, rt, limit, flags.logger())
			if err != nil {
				return err
			}

			snap, err := p.Search(cmd.Context(), f.Normalize())
			if err != nil {
				return err
			}
			if page != 1 {
				if snap, err = p.GoTo(cmd.Context(), page); err != nil {
					return err
				}
			}

			link, err := filters.EncodeQuery(snap.Filters, snap.ReportType)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Query string `json:"query"`
				paginator.Snapshot
			}{Query: link.Encode(), Snapshot: snap})
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Bookmarked query string (departamento=LIMA&type=general)")
	cmd.Flags().StringVar(&reportType, "type", string(model.DefaultReportType), "Report type: personalizado, general, adjudicaciones, garantias")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", model.DefaultPageSize, "Page size: 20, 50, 100, 500 or 1000")
	for _, field := range model.FilterFields() {
		values[field] = cmd.Flags().String(string(field), "", "Filter by "+string(field))
	}
	return cmd
}

func newFacetsCmd(flags *clientFlags) *cobra.Command {
	var (
		match        string
		limit        int
		departamento string
		provincia    string
	)

	cmd := &cobra.Command{
		Use:   "facets NAME",
		Short: "List facet options, with built-in defaults when the service has none",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client()
			if err != nil {
				return err
			}
			r := facets.NewResolver(client, nil, flags.logger())
			fallbacks := r.Init(cmd.Context())

			if departamento != "" {
				if _, err := r.ResolveProvinces(cmd.Context(), departamento); err != nil {
					return err
				}
			}
			if provincia != "" {
				if _, err := r.ResolveDistricts(cmd.Context(), departamento, provincia); err != nil {
					return err
				}
			}

			options, err := r.Match(model.FacetName(args[0]), match, limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"facet":     args[0],
				"data":      options,
				"fallbacks": fallbacks,
			})
		},
	}

	cmd.Flags().StringVar(&match, "match", "", "Fuzzy match query")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of options (0 = all)")
	cmd.Flags().StringVar(&departamento, "departamento", "", "Department for provincias/distritos")
	cmd.Flags().StringVar(&provincia, "provincia", "", "Province for distritos")
	return cmd
}
