package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/nutritrack/internal/models"
)

func (a *app) onboardCmd() *cobra.Command {
	var req models.CreateUserRequest
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Create your profile and calculate daily targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authed()
			if err != nil {
				return err
			}
			u, err := c.Onboard(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(u, func() { printProfile(u) })
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "Display name")
	f.StringVar(&req.DateOfBirth, "dob", "", "Date of birth (YYYY-MM-DD)")
	f.StringVar(&req.Gender, "gender", "", "male or female")
	f.Float64Var(&req.Height, "height", 0, "Height in cm")
	f.Float64Var(&req.Weight, "weight", 0, "Weight in kg")
	f.StringVar(&req.ActivityLevel, "activity", "", "sedentary, light, moderate, active or very_active")
	f.StringVar(&req.NutritionGoal, "goal", "", "lose, maintain or gain")
	for _, name := range []string{"name", "dob", "gender", "height", "weight"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *app) meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your profile and targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authed()
			if err != nil {
				return err
			}
			u, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(u, func() { printProfile(u) })
		},
	}
}

func printProfile(u *models.User) {
	fmt.Printf("%s <%s>\n", u.Name, u.Email)
	fmt.Printf("  %s, born %s, %.0f cm, %.1f kg\n", u.Gender, u.DateOfBirth, u.Measurements.Height, u.Measurements.Weight)
	g := u.Goals
	fmt.Printf("  activity %s, goal %s\n", g.ActivityLevel, g.NutritionGoal)
	fmt.Printf("  BMR %d kcal, TDEE %d kcal\n", g.BMR, g.TDEE)
	fmt.Printf("  target %d kcal: protein %.0fg, carbs %.0fg, fat %.0fg\n",
		g.TargetCalories, g.TargetProtein, g.TargetCarbs, g.TargetFat)
}
