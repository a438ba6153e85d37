// CLI tool to seed a quick-check document for a new device: prompts for a
// body profile, prints the computed targets and stores the document under a
// fresh device id.
// Usage: go run ./cmd/provision-device (from the repo root)
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"smooday/quickcheck-api/nutrition"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using system env")
	}

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DB_URL not set")
		os.Exit(1)
	}

	profile := promptProfile(bufio.NewReader(os.Stdin), os.Stdout)
	doc := nutrition.DefaultDailyLog()
	doc.Profile = profile

	auto := nutrition.TargetsFromProfile(doc.Profile)
	printBreakdown(os.Stdout, auto)
	if _, ok := doc.ApplyAutoTargets(); !ok {
		fmt.Println("\nProfile incomplete; keeping default targets.")
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding document: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	deviceID := uuid.New()
	_, err = conn.Exec(ctx,
		`INSERT INTO quickcheck_documents (key, doc, updated_at)
		 VALUES (@key, @doc::jsonb, NOW())`,
		pgx.NamedArgs{"key": nutrition.DocumentKey(deviceID), "doc": string(raw)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating document: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nDevice provisioned successfully!\n")
	fmt.Printf("  Device ID: %s\n", deviceID)
	fmt.Printf("  Targets:   %d kcal, %.0f g protein, %.0f g fat, %.0f g carbs\n",
		doc.Targets.Kcal, doc.Targets.Protein, doc.Targets.Fat, doc.Targets.Carbs)
}

// promptProfile reads one answer per field. Blank or unparsable answers
// leave the field unset; values are clamped to the input ranges.
func promptProfile(r *bufio.Reader, w io.Writer) nutrition.NutritionProfile {
	ask := func(label string) string {
		fmt.Fprintf(w, "%s: ", label)
		line, _ := r.ReadString('\n')
		return strings.TrimSpace(line)
	}
	number := func(label string) *float64 {
		v, err := strconv.ParseFloat(ask(label), 64)
		if err != nil || v <= 0 {
			return nil
		}
		return &v
	}

	p := nutrition.DefaultProfile()
	p.Sex = nutrition.Sex(ask("Sex (male/female)"))
	p.AgeYears = number("Age (years)")
	p.HeightCM = number("Height (cm)")
	p.WeightKG = number("Weight (kg)")
	if v := ask("Job activity (low/medium/high) [low]"); v != "" {
		p.JobActivity = nutrition.JobActivity(v)
	}
	if v := ask("Training (none/light/moderate/high) [none]"); v != "" {
		p.TrainingActivity = nutrition.TrainingActivity(v)
	}
	if v := ask("Goal (lose_fat/maintain/gain_muscle) [maintain]"); v != "" {
		p.Goal = nutrition.Goal(v)
	}
	return nutrition.ClampProfile(p)
}

func printBreakdown(w io.Writer, a nutrition.AutoTargets) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  BMR:      %s kcal\n", intOrDash(a.BMR))
	if a.PAL != nil {
		fmt.Fprintf(w, "  PAL:      %.2f\n", *a.PAL)
	} else {
		fmt.Fprintf(w, "  PAL:      -\n")
	}
	fmt.Fprintf(w, "  TDEE:     %s kcal\n", intOrDash(a.TDEE))
	fmt.Fprintf(w, "  Goal:     %s (%s)\n", a.Goal.Label, a.Goal.TweakLabel)
	fmt.Fprintf(w, "  Calories: %s kcal\n", intOrDash(a.Calories))
	fmt.Fprintf(w, "  Protein:  %s g\n", intOrDash(a.Protein))
	fmt.Fprintf(w, "  Fat:      %s g\n", intOrDash(a.Fat))
	fmt.Fprintf(w, "  Carbs:    %s g\n", intOrDash(a.Carbs))
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
