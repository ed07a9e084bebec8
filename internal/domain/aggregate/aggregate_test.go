package aggregate_test

import (
	"math/rand"
	"testing"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/aggregate"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/schema"
	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	natQ   = "Gen: BRCA1 Erkrankung: Breast Cancer (nationalen Screening)"
	natKom = "Gen: BRCA1 Erkrankung: Breast Cancer (nationalen Screening) [Kommentar]"
	studQ  = "Gen: BRCA1 Erkrankung: Breast Cancer (wissenschaftlicher Studien)"
)

func aggregateTable(headers []string, rows [][]string) (aggregate.ByGene, model.Table) {
	table := model.NewTable(headers, rows)
	return aggregate.Aggregate(table, schema.Build(table.Headers)), table
}

func TestAggregate_ScenarioA(t *testing.T) {
	Convey("Given three national answers and one comment", t, func() {
		stats, _ := aggregateTable(
			[]string{natQ, natKom},
			[][]string{
				{"Ja", "looks solid"},
				{"Ja", ""},
				{"Nein", ""},
			},
		)

		Convey("Then the national stats count two of three yes", func() {
			s := stats.Get("BRCA1", model.TrackNational)
			So(s.Total, ShouldEqual, 3)
			So(s.YesCount, ShouldEqual, 2)
			So(s.NoCount, ShouldEqual, 1)
			So(s.AbstainCount, ShouldEqual, 0)
			So(s.YesPct, ShouldAlmostEqual, 66.666, 0.01)
			So(s.Comments, ShouldResemble, []string{"looks solid"})
		})

		Convey("Then the disease excludes the parenthesized track text", func() {
			So(schema.Build([]string{natQ, natKom, studQ}).Disease("BRCA1"), ShouldEqual, "Breast Cancer")
		})

		Convey("Then the study track without columns is zero", func() {
			s := stats.Get("BRCA1", model.TrackScientificStudy)
			So(s.Total, ShouldEqual, 0)
			So(s.YesPct, ShouldEqual, 0.0)
			So(s.Comments, ShouldBeEmpty)
		})
	})
}

func TestAggregate_ScenarioB(t *testing.T) {
	Convey("Given an all-missing response column", t, func() {
		stats, _ := aggregateTable(
			[]string{natQ, studQ},
			[][]string{{"", "Ja"}, {"", "Nein"}, {"   ", "Ja"}},
		)

		Convey("Then all national counts are zero and the percentage is 0", func() {
			s := stats.Get("BRCA1", model.TrackNational)
			So(s.Total, ShouldEqual, 0)
			So(s.YesCount, ShouldEqual, 0)
			So(s.NoCount, ShouldEqual, 0)
			So(s.AbstainCount, ShouldEqual, 0)
			So(s.YesPct, ShouldEqual, 0.0)
			So(s.Dropped, ShouldEqual, 0)
		})
	})
}

func TestAggregate_Labels(t *testing.T) {
	Convey("Given stray and abstaining answers", t, func() {
		stats, _ := aggregateTable(
			[]string{natQ},
			[][]string{
				{"Ja"},
				{"Ich kann diese Frage nicht beantworten"},
				{"ja"},
				{" Ja"},
				{"vielleicht"},
				{"Nein"},
			},
		)

		Convey("Then only exact labels are counted and the rest is dropped", func() {
			s := stats.Get("BRCA1", model.TrackNational)
			So(s.YesCount, ShouldEqual, 1)
			So(s.AbstainCount, ShouldEqual, 1)
			So(s.NoCount, ShouldEqual, 1)
			So(s.Total, ShouldEqual, 3)
			So(s.Dropped, ShouldEqual, 3)
			So(stats.Dropped(), ShouldEqual, 3)
		})
	})

	Convey("Given an aggregator with English labels", t, func() {
		table := model.NewTable([]string{natQ}, [][]string{{"Yes"}, {"No"}, {"Ja"}})
		agg := aggregate.New(aggregate.WithLabels(aggregate.Labels{Yes: "Yes", No: "No"}))
		stats := agg.Aggregate(table, schema.Build(table.Headers))

		So(agg.Labels().Abstain, ShouldEqual, aggregate.DefaultLabels().Abstain)
		So(stats.Get("BRCA1", model.TrackNational).YesPct, ShouldEqual, 50.0)
		So(stats.Get("BRCA1", model.TrackNational).Dropped, ShouldEqual, 1)
	})
}

func TestAggregate_CommentOrder(t *testing.T) {
	Convey("Given two comment columns over three rows", t, func() {
		k1 := "Gen: G Erkrankung: D \"wissenschaftlicher\" [Kommentar] 1"
		k2 := "Gen: G Erkrankung: D \"wissenschaftlicher\" [Kommentar] 2"
		stats, _ := aggregateTable(
			[]string{k1, k2},
			[][]string{
				{"r1c1", "r1c2 "},
				{"\t", "same"},
				{"same", "  r3c2"},
			},
		)

		Convey("Then comments are row-major with duplicates and original text", func() {
			want := []string{"r1c1", "r1c2 ", "same", "same", "  r3c2"}
			got := stats.Get("G", model.TrackScientificStudy).Comments
			So(cmp.Diff(want, got), ShouldBeEmpty)
		})
	})
}

func TestAggregate_Invariants(t *testing.T) {
	Convey("Given random tables", t, func() {
		rng := rand.New(rand.NewSource(7))
		values := []string{"Ja", "Nein", "Ich kann diese Frage nicht beantworten", "", "??", "  "}
		headers := []string{
			"Gen: A Erkrankung: a \"nationalen\" 1",
			"Gen: A Erkrankung: a \"nationalen\" 2",
			"Gen: A Erkrankung: a \"wissenschaftlicher\"",
			"Gen: B Erkrankung: b \"nationalen\"",
		}

		for i := 0; i < 25; i++ {
			rows := make([][]string, rng.Intn(20))
			nonBlank := 0
			for r := range rows {
				rows[r] = make([]string, len(headers))
				for c := range rows[r] {
					rows[r][c] = values[rng.Intn(len(values))]
				}
			}
			for _, row := range rows {
				for _, v := range row[:2] {
					if v != "" && v != "  " {
						nonBlank++
					}
				}
			}

			stats, _ := aggregateTable(headers, rows)

			for _, tracks := range stats {
				for _, s := range tracks {
					So(s.YesCount+s.NoCount+s.AbstainCount, ShouldEqual, s.Total)
					So(s.YesPct, ShouldBeBetweenOrEqual, 0.0, 100.0)
					if s.Total == 0 {
						So(s.YesPct, ShouldEqual, 0.0)
					}
				}
			}
			a := stats.Get("A", model.TrackNational)
			So(a.Total+a.Dropped, ShouldEqual, nonBlank)
			So(a.Total, ShouldBeLessThanOrEqualTo, nonBlank)
		}
	})
}

func TestAggregate_DoesNotMutate(t *testing.T) {
	Convey("Given a table", t, func() {
		headers := []string{natQ, natKom}
		rows := [][]string{{"Ja", " note "}, {"x", ""}}
		_, table := aggregateTable(headers, rows)
		before := model.NewTable(headers, rows)

		Convey("Then aggregating leaves it unchanged", func() {
			aggregate.Aggregate(table, schema.Build(table.Headers))
			So(table, ShouldResemble, before)
		})
	})
}

func TestPercentAndMissingGene(t *testing.T) {
	Convey("Given percentage inputs", t, func() {
		So(aggregate.Percent(0, 0), ShouldEqual, 0.0)
		So(aggregate.Percent(1, 4), ShouldEqual, 25.0)
		So(aggregate.Percent(4, 4), ShouldEqual, 100.0)
		So(aggregate.Percent(23, 80), ShouldEqual, 28.75)
		So(aggregate.Percent(4, 5), ShouldEqual, 80.0)
	})

	Convey("Given a gene absent from the stats", t, func() {
		s := aggregate.ByGene{}.Get("nope", model.TrackNational)
		So(s.Total, ShouldEqual, 0)
		So(s.Comments, ShouldNotBeNil)
	})
}
