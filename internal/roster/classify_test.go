package roster

import "testing"

func orgRow(category Cell) []Cell {
	return []Cell{Text("某某组织"), Text("党组织"), Text("备注"), category}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		record []Cell
		want   Tier
	}{
		{"committee", orgRow(Text("党委")), TierCommittee},
		{"committee office", orgRow(Text("党委办")), TierCommittee},
		{"general branch", orgRow(Text("总支")), TierGeneralBranch},
		{"general token alone", orgRow(Text("后勤总")), TierGeneralBranch},
		{"branch", orgRow(Text("支部一")), TierBranch},
		{"committee wins over general token", orgRow(Text("总党委")), TierCommittee},
		{"empty category", orgRow(Empty), TierBranch},
		{"numeric category", orgRow(Number(3)), TierBranch},
		{"short row", []Cell{Text("组织")}, TierBranch},
		{"nil row", nil, TierBranch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.record); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountTiersTotal(t *testing.T) {
	rows := [][]Cell{
		orgRow(Text("党委办")),
		orgRow(Text("总支")),
		orgRow(Text("支部一")),
		orgRow(Empty),
	}

	c := CountTiers(rows)
	if c.Committee != 1 || c.GeneralBranch != 1 || c.Branch != 2 {
		t.Fatalf("CountTiers = %+v, want {1 1 2}", c)
	}
	// Every record lands in exactly one tier.
	if c.Committee+c.GeneralBranch+c.Branch != len(rows) {
		t.Fatalf("tier counts sum to %d, want %d", c.Committee+c.GeneralBranch+c.Branch, len(rows))
	}
}

func TestTierLabels(t *testing.T) {
	if TierCommittee.Label() != "党委" || TierGeneralBranch.Label() != "党总支" || TierBranch.Label() != "党支部" {
		t.Fatalf("unexpected tier labels: %q %q %q",
			TierCommittee.Label(), TierGeneralBranch.Label(), TierBranch.Label())
	}
}
