// fields-cli is an operator console for the stored field records: list and
// inspect fields, override side lengths, check region membership and export
// GeoJSON.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"field-geo/internal/fields"
	"field-geo/internal/geo"
	"field-geo/internal/geometry"
	"field-geo/internal/migrate"
	"field-geo/internal/region"
	"field-geo/internal/store"
	"field-geo/internal/utils"
)

func printHelp() {
	fmt.Println("commands:")
	fmt.Println("  list [limit]")
	fmt.Println("  get <id>")
	fmt.Println("  sides <id> <m> <m> <m> [m...]")
	fmt.Println("  area <m> <m> <m> [m...]")
	fmt.Println("  region <lat> <lng>")
	fmt.Println("  export <file.geojson> [limit]")
	fmt.Println("  help")
	fmt.Println("  exit")
}

func prompt(r *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	s, _ := r.ReadString('\n')
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// parseSides reads metre values and labels them AB, BC, ... in edge order.
func parseSides(args []string) ([]geo.SideLength, error) {
	out := make([]geo.SideLength, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("bad side length %q", a)
		}
		from := geo.GeoPoint{Name: vertexName(i)}
		to := geo.GeoPoint{Name: vertexName((i + 1) % len(args))}
		out[i] = geo.SideLength{SegmentLabel: geo.SegmentLabel(from, to, i, (i+1)%len(args)), LengthMeters: v}
	}
	return out, nil
}

func vertexName(i int) string { return string(rune('A' + i%26)) }

func formatRecord(r fields.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %.4f ha  %s  %d vertices\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.AreaHectares, r.RegionLabel(), len(r.Vertices))
	for _, s := range r.SideLengths {
		fmt.Fprintf(&b, "  %-4s %10.1f m\n", s.SegmentLabel, s.LengthMeters)
	}
	for _, e := range r.Enrichment {
		mark := ""
		if e.Placeholder {
			mark = " (placeholder: " + e.Reason + ")"
		}
		fmt.Fprintf(&b, "  %s%s %v\n", e.Source, mark, e.Values)
	}
	return strings.TrimRight(b.String(), "\n")
}

func main() {
	var envFile string
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "--env" && i+1 < len(os.Args) {
			envFile = os.Args[i+1]
			i++
		} else if strings.HasSuffix(os.Args[i], ".env") {
			envFile = os.Args[i]
		}
	}
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		r := bufio.NewReader(os.Stdin)
		fmt.Println("database connection, press enter for defaults")
		for _, kv := range [][2]string{{"PG_HOST", "127.0.0.1"}, {"PG_PORT", "5432"}, {"PG_USER", "postgres"}, {"PG_PASSWORD", ""}, {"PG_DB", "fieldgeo"}, {"PG_SSLMODE", "disable"}} {
			_ = os.Setenv(kv[0], prompt(r, kv[0], kv[1]))
		}
	}
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		fmt.Println("db error:", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(db); err != nil {
		fmt.Println("schema error:", err)
		os.Exit(1)
	}
	st := store.AttachDB(db)

	regionPath := os.Getenv("REGION_DATA_PATH")
	if regionPath == "" {
		regionPath = "data/regions"
	}
	rs, err := region.Load(regionPath)
	if err != nil {
		fmt.Println("regions unavailable:", err)
	}
	ix := region.NewIndex(rs)
	svc := fields.NewService(fields.NewBuilder(ix), st, nil, 0)

	ctx := context.Background()
	fmt.Printf("fields cli ready (%d region polygons)\n", ix.Len())
	printHelp()
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		parts := strings.Fields(in.Text())
		if len(parts) == 0 {
			continue
		}
		switch strings.ToLower(parts[0]) {
		case "exit", "quit":
			return
		case "help":
			printHelp()
		case "list":
			limit := 20
			if len(parts) >= 2 {
				if n, e := strconv.Atoi(parts[1]); e == nil && n > 0 {
					limit = n
				}
			}
			recs, err := svc.List(ctx, limit)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, r := range recs {
				fmt.Printf("%s  %.4f ha  %s\n", r.ID, r.AreaHectares, r.RegionLabel())
			}
		case "get":
			if len(parts) < 2 {
				fmt.Println("usage: get <id>")
				continue
			}
			r, err := svc.Get(ctx, parts[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println(formatRecord(r))
		case "sides":
			if len(parts) < 5 {
				fmt.Println("usage: sides <id> <m> <m> <m> [m...]")
				continue
			}
			sides, err := parseSides(parts[2:])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			r, err := svc.UpdateSideLengths(ctx, parts[1], sides)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println(formatRecord(r))
		case "area":
			sides, err := parseSides(parts[1:])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			a, err := geometry.AreaFromSidesChecked(geo.Lengths(sides))
			if err != nil {
				fmt.Println("0 ha (", err, ")")
				continue
			}
			fmt.Printf("%.6f ha\n", a)
		case "region":
			if len(parts) < 3 {
				fmt.Println("usage: region <lat> <lng>")
				continue
			}
			lat, e1 := strconv.ParseFloat(parts[1], 64)
			lng, e2 := strconv.ParseFloat(parts[2], 64)
			if e1 != nil || e2 != nil {
				fmt.Println("error: bad coordinate")
				continue
			}
			if r, ok := ix.FindRegionContaining(lat, lng); ok {
				fmt.Printf("%s (%s)\n", r.Name, r.ID)
			} else if n, km, ok := ix.Nearest(lat, lng, 50); ok {
				fmt.Printf("%s, nearest %s (%s) %.1f km\n", region.UnknownName, n.Name, n.ID, km)
			} else {
				fmt.Println(region.UnknownName)
			}
		case "export":
			if len(parts) < 2 {
				fmt.Println("usage: export <file.geojson> [limit]")
				continue
			}
			limit := 1000
			if len(parts) >= 3 {
				if n, e := strconv.Atoi(parts[2]); e == nil && n > 0 {
					limit = n
				}
			}
			recs, err := svc.List(ctx, limit)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			b, err := fields.FeatureCollection(recs).MarshalJSON()
			if err == nil {
				err = os.WriteFile(parts[1], b, 0o644)
			}
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("wrote %d fields to %s\n", len(recs), parts[1])
		default:
			fmt.Println("unknown command")
		}
	}
}
