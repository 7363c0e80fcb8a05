package domain

import "math"

// EarthRadiusKm is the radius used for great-circle distances.
const EarthRadiusKm = 6372.8

// DefaultDedupDistanceKm is the default proximity threshold.
const DefaultDedupDistanceKm = 1.0

// InfrastructureIDColumn is the column added by Deduplicate.
const InfrastructureIDColumn = "infrastructure_id"

// Haversine returns the great-circle distance in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dLon/2), 2)
	return EarthRadiusKm * 2 * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Site is the part of a record used to recognise duplicate infrastructure.
type Site struct {
	Localite    string
	Coordinates *Coordinates
}

// AssignIdentities returns one infrastructure id per site. Sites sharing a
// non-empty localité whose points lie within minKm are linked, and every
// connected group takes the smallest index among its members.
func AssignIdentities(sites []Site, minKm float64) []int {
	parent := make([]int, len(sites))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		switch {
		case ra < rb:
			parent[rb] = ra
		case rb < ra:
			parent[ra] = rb
		}
	}

	byLocalite := make(map[string][]int)
	for i, s := range sites {
		if s.Localite == "" || s.Coordinates == nil {
			continue
		}
		byLocalite[s.Localite] = append(byLocalite[s.Localite], i)
	}

	for _, idx := range byLocalite {
		for a := 0; a < len(idx); a++ {
			for b := a + 1; b < len(idx); b++ {
				p, q := sites[idx[a]].Coordinates, sites[idx[b]].Coordinates
				if Haversine(p.Lat, p.Lon, q.Lat, q.Lon) <= minKm {
					union(idx[a], idx[b])
				}
			}
		}
	}

	ids := make([]int, len(sites))
	for i := range sites {
		ids[i] = find(i)
	}
	return ids
}

// Deduplicate returns a copy of t with an infrastructure_id column. Input
// records are not modified.
func Deduplicate(t Table, g Geography, minKm float64) Table {
	sites := make([]Site, len(t.Records))
	for i, r := range t.Records {
		loc, _ := r.String(g.Localite)
		sites[i] = Site{Localite: loc, Coordinates: r.Coordinates(g.Coordinates)}
	}
	ids := AssignIdentities(sites, minKm)

	out := Table{Name: t.Name, Columns: append(append([]string(nil), t.Columns...), InfrastructureIDColumn)}
	out.Records = make([]Record, len(t.Records))
	for i, r := range t.Records {
		cp := make(Record, len(r)+1)
		for k, v := range r {
			cp[k] = v
		}
		cp[InfrastructureIDColumn] = ids[i]
		out.Records[i] = cp
	}
	return out
}
