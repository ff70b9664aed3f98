package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/nutritrack/internal/models"
)

func (a *app) foodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foods",
		Short: "Search the food catalogue",
	}
	cmd.AddCommand(a.foodsSearchCmd(), a.foodsBarcodeCmd())
	return cmd
}

func (a *app) foodsSearchCmd() *cobra.Command {
	var req models.FoodSearchRequest
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search foods by English or Indonesian name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Query = args[0]
			}
			c, err := a.authed()
			if err != nil {
				return err
			}
			res, err := c.SearchFoods(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(res, func() {
				printFoods(res.Foods)
				if res.HasMore {
					fmt.Printf("showing %d of %d; use --offset %d for more\n",
						len(res.Foods), res.Total, res.Offset+len(res.Foods))
				}
			})
		},
	}
	cmd.Flags().StringVar(&req.Category, "category", "", "Restrict to a category")
	cmd.Flags().IntVar(&req.Limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "Results to skip")
	return cmd
}

func (a *app) foodsBarcodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "barcode <code>",
		Short: "Look up a food by GTIN barcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authed()
			if err != nil {
				return err
			}
			f, err := c.FoodByBarcode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(f, func() { printFoods([]*models.Food{f}) })
		},
	}
}

func printFoods(foods []*models.Food) {
	if len(foods) == 0 {
		fmt.Println("no foods found")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSERVING\tKCAL\tP\tC\tF")
	for _, f := range foods {
		name := f.Name
		if f.NameIndonesian != "" && !strings.EqualFold(f.NameIndonesian, f.Name) {
			name += " / " + f.NameIndonesian
		}
		n := f.Nutrition
		fmt.Fprintf(w, "%s\t%s\t%s\t%g %s\t%.0f\t%.1f\t%.1f\t%.1f\n",
			f.ID, name, f.Category, f.ServingSize.Amount, f.ServingSize.Unit,
			n.Calories, n.Protein, n.Carbs, n.Fat)
	}
	w.Flush()
}

func (a *app) mealCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meal",
		Short: "Log meals",
	}
	cmd.AddCommand(a.mealAddCmd())
	return cmd
}

func (a *app) mealAddCmd() *cobra.Command {
	var (
		req       models.CreateMealRequest
		nutrition models.Nutrition
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a catalogue food (--food) or a custom entry (--name plus nutrition)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.FoodID == "" && req.FoodName == "" {
				return errors.New("either --food or --name is required")
			}
			if req.FoodName != "" {
				req.Nutrition = &nutrition
			}
			c, err := a.authed()
			if err != nil {
				return err
			}
			m, err := c.CreateMeal(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(m, func() {
				fmt.Printf("Logged %s (%s, %g portion) on %s: %.0f kcal\n",
					m.FoodName, m.MealType, m.Portion, m.Date, m.Nutrition.Calories)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.FoodID, "food", "", "Catalogue food ID")
	f.StringVar(&req.FoodName, "name", "", "Custom food name")
	f.StringVar(&req.MealType, "type", "", "breakfast, lunch, dinner or snack")
	f.Float64Var(&req.Portion, "portion", 1, "Number of servings")
	f.StringVar(&req.Date, "date", "", "Date (YYYY-MM-DD, default today)")
	f.Float64Var(&nutrition.Calories, "calories", 0, "Custom entry: kcal per portion")
	f.Float64Var(&nutrition.Protein, "protein", 0, "Custom entry: protein grams per portion")
	f.Float64Var(&nutrition.Carbs, "carbs", 0, "Custom entry: carbs grams per portion")
	f.Float64Var(&nutrition.Fat, "fat", 0, "Custom entry: fat grams per portion")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func (a *app) dayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "day [date]",
		Short: "Show one day's meals and progress (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now().Format(models.DateLayout)
			if len(args) == 1 {
				date = args[0]
			}
			c, err := a.authed()
			if err != nil {
				return err
			}
			l, err := c.DailyLog(cmd.Context(), date)
			if err != nil {
				return err
			}
			return a.print(l, func() { printDay(l) })
		},
	}
}

func printDay(l *models.DailyLog) {
	fmt.Printf("%s: %d meals\n", l.Date, l.MealCount)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, m := range l.Meals {
		fmt.Fprintf(w, "  %s\t%s\t%gx\t%.0f kcal\n", m.MealType, m.FoodName, m.Portion, m.Nutrition.Calories)
	}
	w.Flush()
	t := l.Totals
	fmt.Printf("Total %.0f kcal: protein %.1fg, carbs %.1fg, fat %.1fg\n", t.Calories, t.Protein, t.Carbs, t.Fat)
	if p := l.Progress; p != nil {
		fmt.Printf("Target %d kcal, %d remaining (%.0f%%)\n", p.TargetCalories, p.RemainingCalories, p.Calories)
	}
}
