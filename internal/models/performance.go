package models

// Performance is one entry of a user's MyPerformance document, keyed by
// program id.
type Performance struct {
	ProgramID                    ProgramID `json:"program_id" firestore:"ProgramID"`
	MyPerformanceType            bool      `json:"performs" firestore:"MyPerformanceType"`
	MyPerformanceIsPartLeader    bool      `json:"part_leader" firestore:"MyPerformanceIsPartLeader"`
	MyPerformanceIsSectionLeader bool      `json:"section_leader" firestore:"MyPerformanceIsSectionLeader"`
	MyPerformancePart            string    `json:"part" firestore:"MyPerformancePart"`
	MyPerformancePartDetail      string    `json:"part_detail" firestore:"MyPerformancePartDetail"`
}

type PerformanceMap map[ProgramID]Performance

func PerformanceMapFromData(data map[string]any) PerformanceMap {
	out := make(PerformanceMap, len(data))
	for key, raw := range data {
		m := AsMap(raw)
		if m == nil {
			continue
		}
		var p Performance
		decodeRecord(m, &p)
		if p.ProgramID == "" {
			p.ProgramID = ProgramID(key)
		}
		out[p.ProgramID] = p
	}
	return out
}

// SameAs compares the five tracked fields.
func (p Performance) SameAs(o Performance) bool {
	return p.MyPerformanceType == o.MyPerformanceType &&
		p.MyPerformanceIsPartLeader == o.MyPerformanceIsPartLeader &&
		p.MyPerformanceIsSectionLeader == o.MyPerformanceIsSectionLeader &&
		p.MyPerformancePart == o.MyPerformancePart &&
		p.MyPerformancePartDetail == o.MyPerformancePartDetail
}

// Performer is the roster-side projection of a Performance entry.
type Performer struct {
	PerformerID              UserID `json:"performer_id" firestore:"PerformerID"`
	PerformerPerformanceType bool   `json:"performs" firestore:"PerformerPerformanceType"`
	PerformerIsPartLeader    bool   `json:"part_leader" firestore:"PerformerIsPartLeader"`
	PerformerIsSectionLeader bool   `json:"section_leader" firestore:"PerformerIsSectionLeader"`
	PerformerPart            string `json:"part" firestore:"PerformerPart"`
	PerformerPartDetail      string `json:"part_detail" firestore:"PerformerPartDetail"`
}

func (p Performance) Performer(uid UserID) Performer {
	return Performer{
		PerformerID:              uid,
		PerformerPerformanceType: p.MyPerformanceType,
		PerformerIsPartLeader:    p.MyPerformanceIsPartLeader,
		PerformerIsSectionLeader: p.MyPerformanceIsSectionLeader,
		PerformerPart:            p.MyPerformancePart,
		PerformerPartDetail:      p.MyPerformancePartDetail,
	}
}

func (p Performer) Data() map[string]any {
	return map[string]any{
		"PerformerID":              string(p.PerformerID),
		"PerformerPerformanceType": p.PerformerPerformanceType,
		"PerformerIsPartLeader":    p.PerformerIsPartLeader,
		"PerformerIsSectionLeader": p.PerformerIsSectionLeader,
		"PerformerPart":            p.PerformerPart,
		"PerformerPartDetail":      p.PerformerPartDetail,
	}
}

func PerformerFromData(data map[string]any) Performer {
	var p Performer
	decodeRecord(data, &p)
	return p
}
