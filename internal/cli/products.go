package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopstack/shopsync/internal/envelope"
	"github.com/shopstack/shopsync/internal/models"
)

// newProductsCmd creates the 'products' command group.
func newProductsCmd() *cobra.Command {
	productsCmd := &cobra.Command{
		Use:   "products",
		Short: "Manage the product catalog",
		Long:  `Commands for listing and mutating catalog items on the dashboard backend.`,
	}

	productsCmd.AddCommand(newProductsListCmd())
	productsCmd.AddCommand(newProductsGetCmd())
	productsCmd.AddCommand(newProductsAddCmd())
	productsCmd.AddCommand(newProductsUpdateCmd())
	productsCmd.AddCommand(newProductsDeleteCmd())

	return productsCmd
}

// newProductsListCmd creates the 'products list' command.
func newProductsListCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			raw, err := client.GetProducts(ctx)
			if err != nil {
				return fmt.Errorf("failed to get products: %w", err)
			}

			items, err := envelope.Products(raw)
			if err != nil {
				return fmt.Errorf("failed to decode products: %w", err)
			}

			if outputJSON {
				data, err := json.MarshalIndent(items, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			if len(items) == 0 {
				fmt.Println("No products found")
				return nil
			}

			fmt.Printf("Found %d product(s):\n\n", len(items))
			for _, item := range items {
				fmt.Printf("  %-12s  %-30s  %-15s  %8.2f  %.1f\n",
					item.ProductID, item.Name, item.Category, item.Price, item.Rating)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&outputJSON, "json", "J", false, "Output as JSON")

	return cmd
}

// newProductsGetCmd creates the 'products get' command.
func newProductsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <product-id>",
		Short: "Show a single catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			item, err := client.GetProduct(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get product: %w", err)
			}

			data, err := json.MarshalIndent(item, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

// productFlags binds the catalog item fields shared by add and update.
func productFlags(cmd *cobra.Command, item *models.CatalogItem) {
	cmd.Flags().StringVar(&item.Name, "name", "", "Product name")
	cmd.Flags().StringVar(&item.Category, "category", "", "Product category")
	cmd.Flags().Float64Var(&item.Price, "price", 0, "Product price")
	cmd.Flags().Float64Var(&item.Rating, "rating", 0, "Product rating (0-5)")
	cmd.Flags().StringVar(&item.Brand, "brand", "", "Product brand")
	cmd.Flags().StringVar(&item.Features, "features", "", "Comma-separated feature list")
}

// newProductsAddCmd creates the 'products add' command.
func newProductsAddCmd() *cobra.Command {
	var item models.CatalogItem

	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Create a catalog item",
		Long: `Create a catalog item on the backend.

The local list is only updated once the server accepts the item; a failed
create leaves no local trace.

Example:
  shopsync products add P512 --name "USB-C Hub" --category accessories --price 39.99 --brand Anker`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			item.ProductID = args[0]
			if err := client.AddProduct(ctx, item); err != nil {
				return fmt.Errorf("failed to add product: %w", err)
			}

			fmt.Printf("Added product %s\n", item.ProductID)
			return nil
		},
	}

	productFlags(cmd, &item)

	return cmd
}

// newProductsUpdateCmd creates the 'products update' command.
func newProductsUpdateCmd() *cobra.Command {
	var item models.CatalogItem

	cmd := &cobra.Command{
		Use:   "update <product-id>",
		Short: "Update a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			item.ProductID = args[0]
			if err := client.UpdateProduct(ctx, args[0], item); err != nil {
				return fmt.Errorf("failed to update product: %w", err)
			}

			fmt.Printf("Updated product %s\n", args[0])
			return nil
		},
	}

	productFlags(cmd, &item)

	return cmd
}

// newProductsDeleteCmd creates the 'products delete' command.
func newProductsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <product-id>",
		Short: "Delete a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			if err := client.DeleteProduct(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete product: %w", err)
			}

			fmt.Printf("Deleted product %s\n", args[0])
			return nil
		},
	}
}
