// Command sample-results writes a synthetic HAWCStab2 result set for local
// development: a .cmb/.amp/.opt triple that the ingestion API accepts as-is.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
)

const numSensors = 15

func main() {
	var (
		dir      string
		name     string
		numModes int
		numOps   int
	)
	flag.StringVar(&dir, "dir", "testdata", "Output directory")
	flag.StringVar(&name, "name", "sample", "Result file base name")
	flag.IntVar(&numModes, "modes", 6, "Number of coupled modes")
	flag.IntVar(&numOps, "ops", 12, "Number of operating points")
	flag.Parse()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("create output directory: %v", err)
	}

	writeFile(filepath.Join(dir, name+".cmb"), cmbContent(numOps, numModes))
	writeFile(filepath.Join(dir, name+".amp"), ampContent(numOps, numModes))
	writeFile(filepath.Join(dir, name+".opt"), optContent(numOps))
	log.Printf("wrote %s.{cmb,amp,opt} to %s (%d modes, %d operating points)", name, dir, numModes, numOps)
}

func writeFile(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.Fatalf("write %s: %v", path, err)
	}
}

// windSpeed spaces the operating points over a typical 4..25 m/s range.
func windSpeed(op, numOps int) float64 {
	if numOps == 1 {
		return 4.0
	}
	return 4.0 + 21.0*float64(op)/float64(numOps-1)
}

// cmbContent produces an aeroelastic table: wind speed, then frequency,
// damping and real-part blocks.
func cmbContent(numOps, numModes int) string {
	var b strings.Builder
	b.WriteString("# Mode number:            1            2            3\n")
	for op := 0; op < numOps; op++ {
		ws := windSpeed(op, numOps)
		fmt.Fprintf(&b, "%12.4f", ws)
		for m := 0; m < numModes; m++ {
			freq := 0.25*float64(m+1) + 0.002*ws
			fmt.Fprintf(&b, " %12.6f", freq)
		}
		for m := 0; m < numModes; m++ {
			damp := 0.005*float64(m+1) + 0.0005*ws*math.Sin(float64(m))
			fmt.Fprintf(&b, " %12.6f", damp)
		}
		for m := 0; m < numModes; m++ {
			real := -0.01 * float64(m+1)
			fmt.Fprintf(&b, " %12.6f", real)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ampContent produces a participation table where mode m is dominated by
// sensor m modulo the sensor count.
func ampContent(numOps, numModes int) string {
	var b strings.Builder
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "# header line %d\n", i+1)
	}
	for op := 0; op < numOps; op++ {
		fmt.Fprintf(&b, "%12.4f", windSpeed(op, numOps))
		for m := 0; m < numModes; m++ {
			dominant := m % numSensors
			for s := 0; s < numSensors; s++ {
				amp := 1.0
				if s == dominant {
					amp = 85.0
				}
				fmt.Fprintf(&b, " %12.4f %12.4f", amp, 15.0)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// optContent produces the five-column operating data table.
func optContent(numOps int) string {
	var b strings.Builder
	b.WriteString("# V [m/s]  pitch [deg]  rot. speed [rpm]  P [kW]  T [kN]\n")
	for op := 0; op < numOps; op++ {
		ws := windSpeed(op, numOps)
		pitch := math.Max(0, (ws-11.0)*1.5)
		rpm := math.Min(12.1, 6.0+0.5*ws)
		power := math.Min(5000.0, 35.0*ws*ws)
		thrust := 600.0 - 12.0*math.Abs(ws-11.0)
		fmt.Fprintf(&b, "%12.4f %12.4f %12.4f %12.4f %12.4f\n", ws, pitch, rpm, power, thrust)
	}
	return b.String()
}
