package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/riskcalc/platform/internal/qdiabetes"
)

// inputFlags holds the raw flag values. Only flags the user set are copied
// into the PartialInput, so unset ones take the engine defaults.
type inputFlags struct {
	age       int
	sex       string
	ethnicity int
	smoking   int
	bmi       float64
	height    float64
	weight    float64

	familyHistory          bool
	cvd                    bool
	treatedHypertension    bool
	learningDisabilities   bool
	mentalIllness          bool
	corticosteroids        bool
	statins                bool
	atypicalAntipsychotics bool
	pcos                   bool
	gestationalDiabetes    bool

	fbg      float64
	hba1c    float64
	townsend float64

	model  string
	asJSON bool
}

func (f *inputFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&f.age, "age", 0, "age in years (25-84)")
	fs.StringVar(&f.sex, "sex", "", "male or female")
	fs.IntVar(&f.ethnicity, "ethnicity", int(qdiabetes.EthnicityWhiteOrNotStated), "ethnicity code (see 'options')")
	fs.IntVar(&f.smoking, "smoking", int(qdiabetes.SmokingNon), "smoking category (see 'options')")
	fs.Float64Var(&f.bmi, "bmi", 0, "body mass index in kg/m²")
	fs.Float64Var(&f.height, "height", 0, "height in cm, used with --weight when --bmi is not given")
	fs.Float64Var(&f.weight, "weight", 0, "weight in kg")

	fs.BoolVar(&f.familyHistory, "family-history", false, "first-degree relative with diabetes")
	fs.BoolVar(&f.cvd, "cvd", false, "cardiovascular disease")
	fs.BoolVar(&f.treatedHypertension, "treated-hypertension", false, "treated hypertension")
	fs.BoolVar(&f.learningDisabilities, "learning-disabilities", false, "learning disabilities")
	fs.BoolVar(&f.mentalIllness, "mental-illness", false, "schizophrenia or bipolar disorder")
	fs.BoolVar(&f.corticosteroids, "corticosteroids", false, "regular corticosteroids")
	fs.BoolVar(&f.statins, "statins", false, "statins")
	fs.BoolVar(&f.atypicalAntipsychotics, "atypical-antipsychotics", false, "second generation antipsychotics")
	fs.BoolVar(&f.pcos, "pcos", false, "polycystic ovary syndrome (women only)")
	fs.BoolVar(&f.gestationalDiabetes, "gestational-diabetes", false, "history of gestational diabetes (women only)")

	fs.Float64Var(&f.fbg, "fbg", 0, "fasting blood glucose in mmol/L")
	fs.Float64Var(&f.hba1c, "hba1c", 0, "HbA1c in mmol/mol")
	fs.Float64Var(&f.townsend, "townsend", 0, "Townsend deprivation score")

	fs.BoolVar(&f.asJSON, "json", false, "print JSON")
}

func (f *inputFlags) partial(fs *pflag.FlagSet) qdiabetes.PartialInput {
	var p qdiabetes.PartialInput
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}

	set("age", func() { p.Age = &f.age })
	set("sex", func() {
		sex := qdiabetes.Sex(strings.ToLower(f.sex))
		p.Sex = &sex
	})
	set("ethnicity", func() {
		e := qdiabetes.Ethnicity(f.ethnicity)
		p.Ethnicity = &e
	})
	set("smoking", func() {
		s := qdiabetes.Smoking(f.smoking)
		p.Smoking = &s
	})
	set("bmi", func() { p.BMI = &f.bmi })
	set("height", func() { p.Height = &f.height })
	set("weight", func() { p.Weight = &f.weight })

	set("family-history", func() { p.FamilyHistoryDiabetes = &f.familyHistory })
	set("cvd", func() { p.CardiovascularDisease = &f.cvd })
	set("treated-hypertension", func() { p.TreatedHypertension = &f.treatedHypertension })
	set("learning-disabilities", func() { p.LearningDisabilities = &f.learningDisabilities })
	set("mental-illness", func() { p.MentalIllness = &f.mentalIllness })
	set("corticosteroids", func() { p.Corticosteroids = &f.corticosteroids })
	set("statins", func() { p.Statins = &f.statins })
	set("atypical-antipsychotics", func() { p.AtypicalAntipsychotics = &f.atypicalAntipsychotics })
	set("pcos", func() { p.PolycysticOvaries = &f.pcos })
	set("gestational-diabetes", func() { p.GestationalDiabetes = &f.gestationalDiabetes })

	set("fbg", func() { p.FastingBloodGlucose = &f.fbg })
	set("hba1c", func() { p.HbA1c = &f.hba1c })
	set("townsend", func() { p.TownsendScore = &f.townsend })
	return p
}

func (f *inputFlags) resolve(cmd *cobra.Command) (qdiabetes.ClinicalInput, error) {
	return f.partial(cmd.Flags()).Resolve()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "qdiabetes",
		Short:         "QDiabetes-2018 10-year type 2 diabetes risk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newScoreCmd(), newProjectCmd(), newOptionsCmd())
	return root
}

func newScoreCmd() *cobra.Command {
	var f inputFlags
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the 10-year risk",
		Example: "  qdiabetes score --age 40 --sex male --smoking 2 --height 182 --weight 90 --treated-hypertension\n" +
			"  qdiabetes score --age 55 --sex female --hba1c 42 --json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.resolve(cmd)
			if err != nil {
				return err
			}

			var result qdiabetes.RiskResult
			if f.model != "" {
				result, err = qdiabetes.ComputeModel(in, qdiabetes.Model(strings.ToUpper(f.model)))
			} else {
				result, err = qdiabetes.Compute(in)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.asJSON {
				return writeJSON(out, result)
			}
			fmt.Fprintf(out, "Model:   %s\n", result.Model)
			fmt.Fprintf(out, "Risk:    %.2f%%\n", result.RiskPercentage)
			fmt.Fprintf(out, "Level:   %s\n", result.RiskLevel)
			fmt.Fprintf(out, "BMI:     %.1f\n", in.BMI)
			return nil
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().StringVar(&f.model, "model", "", "force a model variant: A, B (fasting glucose) or C (HbA1c)")
	return cmd
}

func newProjectCmd() *cobra.Command {
	var f inputFlags
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Compare the current risk with the risk after lifestyle and treatment changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			p, err := qdiabetes.Project(in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.asJSON {
				return writeJSON(out, p)
			}
			fmt.Fprintf(out, "Current:    %.2f%% (%s)\n", p.Current.RiskPercentage, p.Current.RiskLevel)
			fmt.Fprintf(out, "Projected:  %.2f%% (%s)\n", p.Projected.RiskPercentage, p.Projected.RiskLevel)
			fmt.Fprintf(out, "Reduction:  %.2f points (%.0f%%)\n", p.Reduction, p.Improvement)
			if len(p.Improvements) == 0 {
				fmt.Fprintln(out, "No modifiable factors above target.")
				return nil
			}
			fmt.Fprintln(out, "Changes:")
			for _, s := range p.Improvements {
				fmt.Fprintf(out, "  - %s\n", s)
			}
			return nil
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func newOptionsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "options",
		Short: "List ethnicity and smoking codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string][]qdiabetes.Option{
					"ethnicity": qdiabetes.EthnicityOptions,
					"smoking":   qdiabetes.SmokingOptions,
				})
			}
			fmt.Fprintln(out, "Ethnicity (--ethnicity):")
			for _, o := range qdiabetes.EthnicityOptions {
				fmt.Fprintf(out, "  %d  %s\n", o.Value, o.Label)
			}
			fmt.Fprintln(out, "Smoking (--smoking):")
			for _, o := range qdiabetes.SmokingOptions {
				fmt.Fprintf(out, "  %d  %s\n", o.Value, o.Label)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
