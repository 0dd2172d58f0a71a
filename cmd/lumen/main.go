// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// The lumen command exercises Lumen compiler passes on built-in demo
// pipelines.
package main

import (
	"fmt"
	"os"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"github.com/lumen-lang/lumen/build/ir"
	"github.com/lumen-lang/lumen/math/grad"
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "A toolbox for the Lumen array IR.",
}

var gradCmd = &cobra.Command{
	Use:   "grad [pipeline]",
	Short: "differentiate a demo pipeline and print the adjoint functions.",
	Long: `Build one of the built-in demo pipelines, differentiate its scalar output
with respect to every contributing array function, and print each adjoint
function stage by stage. Run without an argument to list the pipelines.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.SetLevel(log.DebugLevel)
		}
		if len(args) == 0 {
			names := maps.Keys(pipelines)
			sort.Strings(names)
			fmt.Println("available pipelines:")
			for _, name := range names {
				fmt.Printf("  %s\n", name)
			}
			return nil
		}
		build, ok := pipelines[args[0]]
		if !ok {
			return fmt.Errorf("unknown pipeline %q", args[0])
		}
		output := build()
		adjoints, err := grad.PropagateAdjoints(output)
		if err != nil {
			return err
		}
		names := maps.Keys(adjoints)
		sort.Strings(names)
		fmt.Printf("d/d[...] %s\n", output)
		for _, name := range names {
			fmt.Print(grad.Sprint(adjoints[name]))
		}
		return nil
	},
}

// pipelines maps a demo name to a builder returning the scalar output
// expression to differentiate.
var pipelines = map[string]func() ir.Expr{
	"product": productPipeline,
	"shift":   shiftPipeline,
	"sum":     sumPipeline,
	"smooth":  smoothPipeline,
}

// productPipeline multiplies two constant functions pointwise.
func productPipeline() ir.Expr {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewFloat(2))
	g := ir.NewFunc("g", x).Define(ir.NewFloat(3))
	out := ir.NewFunc("out", x).Define(ir.NewMul(f.At(x), g.At(x)))
	return out.At(ir.NewInt(0))
}

// shiftPipeline reads its producer at a shifted index.
func shiftPipeline() ir.Expr {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewCast(ir.Float, x))
	out := ir.NewFunc("out", x).Define(f.At(ir.NewAdd(x, ir.NewInt(1))))
	return out.At(ir.NewInt(0))
}

// sumPipeline reduces its producer over one axis.
func sumPipeline() ir.Expr {
	x := ir.NewVar("x")
	y := ir.NewVar("y")
	f := ir.NewFunc("f", x, y).Define(ir.NewFloat(1))
	rd := ir.NewRDom(ir.Bound{Min: ir.NewInt(0), Extent: ir.NewInt(4)})
	out := ir.NewFunc("out", x).Define(ir.NewFloat(0))
	out.Update(f.At(x, rd.Var(0)))
	return out.At(ir.NewInt(0))
}

// smoothPipeline chains an exponential through a let binding.
func smoothPipeline() ir.Expr {
	x := ir.NewVar("x")
	f := ir.NewFunc("f", x).Define(ir.NewCast(ir.Float, x))
	t := ir.NewVar("t")
	out := ir.NewFunc("out", x).Define(ir.NewLet("t", f.At(x), ir.NewMul(ir.Exp(t), t)))
	return out.At(ir.NewInt(1))
}

func init() {
	rootCmd.AddCommand(gradCmd)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
