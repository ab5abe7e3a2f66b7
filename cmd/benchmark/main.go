// Benchmark tool for testing Alienbuster against synthetic sighting data.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8080 -hotspots 5 -background 500
//
// This tool:
//  1. Generates labeled synthetic sightings: dense invasive hotspots plus
//     scattered low-confidence background noise
//  2. Sends each sighting to Alienbuster for ingestion and scoring
//  3. Compares the fused risk verdict with the ground-truth labels
//  4. Calculates precision, recall, F1-score and checks hotspot detection
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Sighting is one synthetic labeled observation.
type Sighting struct {
	Lat          float64
	Lon          float64
	Species      string
	MLConfidence float64
	IsInvasive   bool
	Hotspot      int // -1 for background noise
}

// ReportRequest is the Alienbuster ingestion payload.
type ReportRequest struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Species      string  `json:"species,omitempty"`
	MLConfidence float64 `json:"mlConfidence"`
	IsInvasive   bool    `json:"isInvasive"`
	Reporter     string  `json:"reporter,omitempty"`
}

// ReportResponse is the Alienbuster ingestion response.
type ReportResponse struct {
	Report struct {
		ID        string   `json:"id"`
		FusedRisk *float64 `json:"fusedRisk"`
		Status    string   `json:"status"`
	} `json:"report"`
	RiskBand string `json:"riskBand"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Hotspot sighting flagged medium/high
	FalsePositives int64 // Background sighting flagged medium/high
	TrueNegatives  int64 // Background sighting kept low
	FalseNegatives int64 // Hotspot sighting kept low (missed spread!)

	TotalProcessed int64
	TotalHotspot   int64
	TotalNoise     int64
	TotalUnscored  int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

var invasiveSpecies = []string{
	"lycorma-delicatula",
	"ailanthus-altissima",
	"heracleum-mantegazzianum",
	"carcinus-maenas",
	"dreissena-polymorpha",
}

var nativeSpecies = []string{
	"acer-saccharum",
	"quercus-rubra",
	"danaus-plexippus",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Alienbuster base URL")
	hotspots := flag.Int("hotspots", 5, "Number of synthetic invasion hotspots")
	perHotspot := flag.Int("per-hotspot", 8, "Sightings per hotspot")
	background := flag.Int("background", 200, "Scattered background sightings")
	threshold := flag.Float64("threshold", 0.65, "Fused risk above which a sighting counts as flagged")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	seed := flag.Int64("seed", 42, "Random seed for reproducible datasets")
	verbose := flag.Bool("verbose", false, "Print each sighting result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║       ALIENBUSTER BENCHMARK - Synthetic Invasion Replay       ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nTarget URL:   %s\n", *baseURL)
	fmt.Printf("Hotspots:     %d x %d sightings\n", *hotspots, *perHotspot)
	fmt.Printf("Background:   %d sightings\n", *background)
	fmt.Printf("Threshold:    %.2f\n", *threshold)
	fmt.Printf("Workers:      %d\n", *workers)
	fmt.Printf("Seed:         %d\n", *seed)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Alienbuster not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Alienbuster is running:")
		fmt.Println("  go run cmd/alienbuster/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Alienbuster is healthy")

	sightings := generateSightings(*hotspots, *perHotspot, *background, *seed)
	fmt.Printf("✓ Generated %d sightings\n", len(sightings))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(sightings, *baseURL, *threshold, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
	checkOutbreaks(*baseURL, *hotspots)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// generateSightings builds the labeled dataset. Hotspots are tight
// packs of high-confidence invasive sightings a few hundred meters
// wide; background noise is low-confidence and spread over a whole
// degree of latitude and longitude.
func generateSightings(hotspots, perHotspot, background int, seed int64) []Sighting {
	rng := rand.New(rand.NewSource(seed))
	var sightings []Sighting

	for h := 0; h < hotspots; h++ {
		centerLat := 40.0 + rng.Float64()*5.0
		centerLon := -75.0 + rng.Float64()*5.0
		species := invasiveSpecies[h%len(invasiveSpecies)]

		for i := 0; i < perHotspot; i++ {
			// ~300m jitter around the hotspot center
			sightings = append(sightings, Sighting{
				Lat:          centerLat + (rng.Float64()-0.5)*0.006,
				Lon:          centerLon + (rng.Float64()-0.5)*0.006,
				Species:      species,
				MLConfidence: 0.8 + rng.Float64()*0.19,
				IsInvasive:   true,
				Hotspot:      h,
			})
		}
	}

	for i := 0; i < background; i++ {
		species := nativeSpecies[rng.Intn(len(nativeSpecies))]
		invasive := false
		if rng.Float64() < 0.1 {
			// Occasional lone invasive sighting with weak confidence;
			// without corroboration these should stay low risk.
			species = invasiveSpecies[rng.Intn(len(invasiveSpecies))]
			invasive = true
		}
		sightings = append(sightings, Sighting{
			Lat:          40.0 + rng.Float64()*5.0,
			Lon:          -75.0 + rng.Float64()*5.0,
			Species:      species,
			MLConfidence: 0.1 + rng.Float64()*0.4,
			IsInvasive:   invasive,
			Hotspot:      -1,
		})
	}

	// Shuffle so hotspot sightings interleave with noise the way real
	// submissions would.
	rng.Shuffle(len(sightings), func(i, j int) {
		sightings[i], sightings[j] = sightings[j], sightings[i]
	})
	return sightings
}

func runBenchmark(sightings []Sighting, baseURL string, threshold float64, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan Sighting, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}

			for s := range work {
				start := time.Now()
				result, err := submitSighting(client, baseURL, s)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", s.Species, err)
					}
					continue
				}

				if s.Hotspot >= 0 {
					atomic.AddInt64(&metrics.TotalHotspot, 1)
				} else {
					atomic.AddInt64(&metrics.TotalNoise, 1)
				}

				if result.Report.FusedRisk == nil {
					atomic.AddInt64(&metrics.TotalUnscored, 1)
					continue
				}

				predicted := *result.Report.FusedRisk >= threshold
				actual := s.Hotspot >= 0

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else {
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if predicted != actual {
						status = "✗"
					}
					fmt.Printf("%s %-26s | (%.4f, %.4f) | hotspot: %-5v | risk: %.3f (%s)\n",
						status,
						s.Species,
						s.Lat, s.Lon,
						actual,
						*result.Report.FusedRisk,
						result.RiskBand,
					)
				}
			}
		}()
	}

	for _, s := range sightings {
		work <- s
	}
	close(work)
	wg.Wait()

	return metrics
}

func submitSighting(client *http.Client, baseURL string, s Sighting) (*ReportResponse, error) {
	req := ReportRequest{
		Lat:          round6(s.Lat),
		Lon:          round6(s.Lon),
		Species:      s.Species,
		MLConfidence: s.MLConfidence,
		IsInvasive:   s.IsInvasive,
		Reporter:     "benchmark",
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/reports", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// checkOutbreaks queries the outbreak surface after the replay and
// reports how many distinct clusters the engine found against the
// number of hotspots seeded.
func checkOutbreaks(baseURL string, hotspots int) {
	resp, err := http.Get(baseURL + "/outbreaks?status=active")
	if err != nil {
		fmt.Printf("\nWARNING: outbreak query failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		fmt.Printf("\nWARNING: outbreak response unreadable: %v\n", err)
		return
	}

	fmt.Printf("\n🗺️  OUTBREAK DETECTION\n")
	fmt.Printf("   Hotspots Seeded:   %d\n", hotspots)
	fmt.Printf("   Outbreaks Active:  %d\n", body.Count)
	if body.Count >= hotspots {
		fmt.Println("   ✅ Every seeded hotspot surfaced as an outbreak")
	} else if body.Count > 0 {
		fmt.Println("   ⚠️  Some hotspots did not cluster - check minRisk and eps settings")
	} else {
		fmt.Println("   ❌ No outbreaks detected - is the clustering pass running?")
	}
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:   %d\n", m.TotalProcessed)
	fmt.Printf("   Hotspot Sightings: %d\n", m.TotalHotspot)
	fmt.Printf("   Background Noise:  %d\n", m.TotalNoise)
	fmt.Printf("   Unscored:          %d\n", m.TotalUnscored)
	fmt.Printf("   Errors:            %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                         Predicted")
	fmt.Println("                    FLAG        PASS")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  H  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("           N  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of flagged sightings, how many were hotspot spread)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of hotspot spread, how much did we flag)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		rps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f reports/sec\n", rps)
	}

	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching the spread")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but some hotspot sightings slipped through")
	} else {
		fmt.Println("   ❌ Poor recall - most hotspot sightings went unflagged")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - flags are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - many false alarms")
	} else {
		fmt.Println("   ❌ Very low precision - mostly false alarms")
	}

	fmt.Println()
}
