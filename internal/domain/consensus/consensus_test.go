package consensus_test

import (
	"fmt"
	"testing"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/aggregate"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/consensus"
	. "github.com/smartystreets/goconvey/convey"
)

func pct(p float64) aggregate.GeneStats {
	return aggregate.GeneStats{YesPct: p}
}

func TestClassify_Scenarios(t *testing.T) {
	Convey("Given the default classifier", t, func() {
		Convey("When national consensus is reached", func() {
			So(consensus.Classify(pct(85.0), pct(10.0)), ShouldEqual, consensus.NationalScreening)
		})

		Convey("When only the study track reaches consensus", func() {
			So(consensus.Classify(pct(50.0), pct(90.0)), ShouldEqual, consensus.ScientificStudyOnly)
		})

		Convey("When neither track reaches consensus", func() {
			So(consensus.Classify(pct(79.9), pct(79.9)), ShouldEqual, consensus.NotRecommended)
		})

		Convey("When both tracks reach consensus, national wins", func() {
			So(consensus.Classify(pct(100), pct(100)), ShouldEqual, consensus.NationalScreening)
		})

		Convey("When a gene has no answers at all", func() {
			So(consensus.Classify(aggregate.GeneStats{}, aggregate.GeneStats{}), ShouldEqual, consensus.NotRecommended)
		})
	})
}

func TestClassify_Boundary(t *testing.T) {
	Convey("Given fixed study stats", t, func() {
		for _, study := range []float64{0, 50, 79.9, 80, 95} {
			before := consensus.Classify(pct(79.9), pct(study))
			after := consensus.Classify(pct(80.0), pct(study))

			Convey(fmt.Sprintf("Then raising national to 80.0 flips to national screening with study at %.1f", study), func() {
				So(before, ShouldNotEqual, consensus.NationalScreening)
				So(after, ShouldEqual, consensus.NationalScreening)
			})
		}

		Convey("Then the study threshold is inclusive too", func() {
			So(consensus.Classify(pct(0), pct(80.0)), ShouldEqual, consensus.ScientificStudyOnly)
			So(consensus.Classify(pct(0), pct(79.99)), ShouldEqual, consensus.NotRecommended)
		})
	})
}

func TestClassifier_Options(t *testing.T) {
	Convey("Given a classifier with a 66 percent threshold", t, func() {
		c := consensus.NewClassifier(consensus.WithThreshold(66))

		So(c.Threshold(), ShouldEqual, 66.0)
		So(c.Meets(66), ShouldBeTrue)
		So(c.Classify(pct(70), pct(0)), ShouldEqual, consensus.NationalScreening)
	})

	Convey("Given an out-of-range threshold", t, func() {
		c := consensus.NewClassifier(consensus.WithThreshold(120))
		So(c.Threshold(), ShouldEqual, consensus.DefaultThreshold)
	})
}

func TestRecommendation_Labels(t *testing.T) {
	Convey("Given every recommendation", t, func() {
		So(consensus.NationalScreening.String(), ShouldEqual, "national_screening")
		So(consensus.ScientificStudyOnly.String(), ShouldEqual, "scientific_study_only")
		So(consensus.NotRecommended.String(), ShouldEqual, "not_recommended")
		So(consensus.Recommendation(7).String(), ShouldEqual, "unknown")

		b, err := consensus.NotRecommended.MarshalText()
		So(err, ShouldBeNil)
		So(string(b), ShouldEqual, "not_recommended")
		So(consensus.Recommendations, ShouldHaveLength, 3)
	})
}
