// Package cluster groups high-risk reports into spatial outbreaks using
// density-based clustering, one species at a time.
package cluster

import (
	"sort"

	"github.com/JoanathanPS/alienbuster/internal/geo"
)

// Role classifies a point's part in a cluster.
type Role int

const (
	// RoleNoise marks a point with no core point in reach.
	RoleNoise Role = iota
	// RoleCore marks a point whose neighborhood meets the density threshold.
	RoleCore
	// RoleReachable marks a border point attached through a core point.
	RoleReachable
)

func (r Role) String() string {
	switch r {
	case RoleCore:
		return "core"
	case RoleReachable:
		return "reachable"
	default:
		return "noise"
	}
}

// Point is one report position entering clustering.
type Point struct {
	ID   string
	Lat  float64
	Lon  float64
	Risk float64
}

// Member is a clustered point with its density role. Via names the core
// point that pulled a reachable member in.
type Member struct {
	Point
	Role Role
	Via  string
}

// Run performs DBSCAN over the points and returns the clusters plus the
// leftover noise points. The neighborhood count includes the point
// itself, so a point is core when its neighborhood holds at least
// minPoints reports total.
//
// Points are processed in ascending ID order and each cluster's seed
// queue expands in the same order, so two runs over the same input
// always produce identical membership regardless of input ordering.
func Run(points []Point, epsKm float64, minPoints int) (clusters [][]Member, noise []Point) {
	pts := make([]Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool { return pts[i].ID < pts[j].ID })

	// Neighborhoods are symmetric; precompute once.
	neighbors := make([][]int, len(pts))
	for i := range pts {
		for j := range pts {
			if geo.DistanceKm(pts[i].Lat, pts[i].Lon, pts[j].Lat, pts[j].Lon) <= epsKm {
				neighbors[i] = append(neighbors[i], j)
			}
		}
	}

	const unvisited = -1
	assignment := make([]int, len(pts))
	roles := make([]Role, len(pts))
	via := make([]string, len(pts))
	for i := range assignment {
		assignment[i] = unvisited
	}

	clusterID := 0
	for i := range pts {
		if assignment[i] != unvisited {
			continue
		}
		if len(neighbors[i]) < minPoints {
			// May still be claimed later as a reachable border point.
			continue
		}

		assignment[i] = clusterID
		roles[i] = RoleCore
		queue := append([]int(nil), neighbors[i]...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if assignment[j] != unvisited {
				continue
			}
			assignment[j] = clusterID
			if len(neighbors[j]) >= minPoints {
				roles[j] = RoleCore
				queue = append(queue, neighbors[j]...)
			} else {
				roles[j] = RoleReachable
				via[j] = pts[i].ID
			}
		}
		clusterID++
	}

	// Border points reachable from a cluster grown later keep their
	// first assignment; record the actual attaching core for them.
	for j := range pts {
		if roles[j] != RoleReachable {
			continue
		}
		for _, k := range neighbors[j] {
			if roles[k] == RoleCore && assignment[k] == assignment[j] {
				via[j] = pts[k].ID
				break
			}
		}
	}

	clusters = make([][]Member, clusterID)
	for i, p := range pts {
		if assignment[i] == unvisited {
			noise = append(noise, p)
			continue
		}
		clusters[assignment[i]] = append(clusters[assignment[i]], Member{Point: p, Role: roles[i], Via: via[i]})
	}
	return clusters, noise
}
