package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/naveenspark/storefront/internal/catalog"
	"github.com/naveenspark/storefront/internal/sanitize"
	"github.com/naveenspark/storefront/pkg/client"
	"github.com/naveenspark/storefront/pkg/domain"
)

func (a *app) newProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "List and manage products",
	}
	cmd.AddCommand(
		a.newProductsListCmd(),
		a.newProductsGetCmd(),
		a.newProductsCreateCmd(),
		a.newProductsUpdateCmd(),
		a.newProductsDeleteCmd(),
	)
	return cmd
}

func (a *app) newProductsListCmd() *cobra.Command {
	var (
		title              string
		priceMin, priceMax float64
		categoryID         int
		limit, page        int
		all                bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()
			if !flags.Changed("limit") {
				limit = a.cfg.Catalog.PageSize
			}
			if page < 1 {
				return fmt.Errorf("invalid page %d", page)
			}

			filters := domain.ProductFilters{Title: title, CategoryID: categoryID}
			if flags.Changed("price-min") {
				filters.PriceMin = domain.Price(priceMin)
			}
			if flags.Changed("price-max") {
				filters.PriceMax = domain.Price(priceMax)
			}

			f := catalog.NewFetcher(a.api, limit, catalog.WithLogger(a.logger))
			if err := f.SetPageSize(limit); err != nil {
				return err
			}
			f.SetFilters(filters)

			out := cmd.OutOrStdout()
			for {
				res, err := f.Fetch(ctx)
				if err != nil {
					return errors.New(domain.MessageOf(err))
				}
				st := f.State()
				if all || st.Page == page {
					printProducts(out, res.Items, all && st.Page > 1)
				}
				if st.Page < page || (all && res.HasMore) {
					if f.NextPage() {
						continue
					}
					fmt.Fprintf(out, "No products on page %d.\n", page)
					break
				}
				if !all && res.HasMore {
					fmt.Fprintf(out, "\n(page %d, more with --page %d)\n", st.Page, st.Page+1)
				}
				break
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Only products whose title contains this text")
	cmd.Flags().Float64Var(&priceMin, "price-min", 0, "Minimum price")
	cmd.Flags().Float64Var(&priceMax, "price-max", 0, "Maximum price")
	cmd.Flags().IntVar(&categoryID, "category", 0, "Only products in this category ID")
	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultPageSize, "Products per page")
	cmd.Flags().IntVar(&page, "page", 1, "Page to show")
	cmd.Flags().BoolVar(&all, "all", false, "Walk every page")
	cmd.MarkFlagsMutuallyExclusive("all", "page")
	return cmd
}

func printProducts(w io.Writer, items []domain.Product, continued bool) {
	if len(items) == 0 {
		if !continued {
			fmt.Fprintln(w, "No products found.")
		}
		return
	}
	if !continued {
		fmt.Fprintf(w, "%-6s  %-40s  %10s  %s\n", "ID", "TITLE", "PRICE", "CATEGORY")
		fmt.Fprintf(w, "%-6s  %-40s  %10s  %s\n", "--", "-----", "-----", "--------")
	}
	for _, p := range items {
		fmt.Fprintf(w, "%-6d  %-40s  %10s  %s\n",
			p.ID,
			sanitize.Line(p.Title, 40),
			strconv.FormatFloat(p.Price, 'f', 2, 64),
			sanitize.Line(p.CategoryName(), 30))
	}
}

func (a *app) newProductsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.api.GetProduct(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get product %d: %s", id, client.MessageOf(err))
			}
			printProduct(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func printProduct(w io.Writer, p *domain.Product) {
	fmt.Fprintf(w, "%-12s %d\n", "ID", p.ID)
	fmt.Fprintf(w, "%-12s %s\n", "Title", sanitize.Line(p.Title, 80))
	fmt.Fprintf(w, "%-12s %s\n", "Price", strconv.FormatFloat(p.Price, 'f', 2, 64))
	if p.Category != nil {
		fmt.Fprintf(w, "%-12s %s (%d)\n", "Category", sanitize.Line(p.Category.Name, 40), p.Category.ID)
	}
	fmt.Fprintf(w, "%-12s %s\n", "Description", sanitize.Text(p.Description))
	images := p.Images
	if len(images) == 0 {
		images = []string{p.Cover()}
	}
	for i, u := range images {
		label := ""
		if i == 0 {
			label = "Images"
		}
		fmt.Fprintf(w, "%-12s %s\n", label, sanitize.Line(u, 200))
	}
}

// productFlags binds the writable product fields to cmd.
type productFlags struct {
	title       string
	price       float64
	description string
	categoryID  int
	images      []string
}

func (pf *productFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&pf.title, "title", "", "Product title")
	cmd.Flags().Float64Var(&pf.price, "price", 0, "Price")
	cmd.Flags().StringVar(&pf.description, "description", "", "Description")
	cmd.Flags().IntVar(&pf.categoryID, "category", 0, "Category ID")
	cmd.Flags().StringSliceVar(&pf.images, "image", nil, "Image URL (repeatable)")
}

// request builds the payload from the flags the user set.
func (pf *productFlags) request(cmd *cobra.Command) (client.ProductRequest, error) {
	var req client.ProductRequest
	flags := cmd.Flags()
	if flags.Changed("title") {
		req.Title = strings.TrimSpace(pf.title)
	}
	if flags.Changed("price") {
		if pf.price < 0 {
			return req, errors.New("price must not be negative")
		}
		req.Price = domain.Price(pf.price)
	}
	if flags.Changed("description") {
		req.Description = pf.description
	}
	if flags.Changed("category") {
		req.CategoryID = pf.categoryID
	}
	for _, raw := range pf.images {
		u, err := domain.ParseImage(raw)
		if err != nil {
			return req, errors.New(domain.MessageOf(err))
		}
		req.Images = append(req.Images, u)
	}
	return req, nil
}

func (a *app) newProductsCreateCmd() *cobra.Command {
	var pf productFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := pf.request(cmd)
			if err != nil {
				return err
			}
			if *req.Price == 0 {
				return errors.New("price must be positive")
			}
			p, err := a.api.CreateProduct(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("create product: %s", client.MessageOf(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created product %d\n", p.ID)
			return nil
		},
	}
	pf.bind(cmd)
	for _, name := range []string{"title", "price", "description", "category", "image"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *app) newProductsUpdateCmd() *cobra.Command {
	var pf productFlags
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the given fields of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req, err := pf.request(cmd)
			if err != nil {
				return err
			}
			if req.IsEmpty() {
				return errors.New("One or more fields need to be changed.") //nolint:staticcheck // shown verbatim
			}
			p, err := a.api.UpdateProduct(cmd.Context(), id, req)
			if err != nil {
				return fmt.Errorf("update product %d: %s", id, client.MessageOf(err))
			}
			printProduct(cmd.OutOrStdout(), p)
			return nil
		},
	}
	pf.bind(cmd)
	return cmd
}

func (a *app) newProductsDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := a.confirm(fmt.Sprintf("Delete product %d? [y/N] ", id))
				if err != nil || !ok {
					return err
				}
			}
			if err := a.api.DeleteProduct(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete product %d: %s", id, client.MessageOf(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted product %d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question; anything but y or yes is no.
func (a *app) confirm(question string) (bool, error) {
	answer, err := a.readLine(question)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	fmt.Fprintln(a.errOut, "Aborted.")
	return false, nil
}
