package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have the survey defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.GeneMarker, convey.ShouldEqual, "Gen:")
			convey.So(cfg.DiseaseMarker, convey.ShouldEqual, "Erkrankung:")
			convey.So(cfg.NationalMarker, convey.ShouldEqual, "nationalen")
			convey.So(cfg.StudyMarker, convey.ShouldEqual, "wissenschaftlicher")
			convey.So(cfg.CommentMarker, convey.ShouldEqual, "[Kommentar]")
			convey.So(cfg.YesLabel, convey.ShouldEqual, "Ja")
			convey.So(cfg.NoLabel, convey.ShouldEqual, "Nein")
			convey.So(cfg.AbstainLabel, convey.ShouldEqual, "Ich kann diese Frage nicht beantworten")
			convey.So(cfg.Threshold, convey.ShouldEqual, 80.0)
			convey.So(cfg.CommentDelimiter, convey.ShouldEqual, " | ")
			convey.So(cfg.UnreviewedLabel, convey.ShouldEqual, "unreviewed")
			convey.So(cfg.LedgerBackend, convey.ShouldEqual, "memory")
			convey.So(cfg.ResetReviewsOnLoad, convey.ShouldBeTrue)
			convey.So(cfg.ExportIncludeTotal, convey.ShouldBeFalse)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then markers and labels are assembled from the fields", func() {
			convey.So(cfg.Markers().Gene, convey.ShouldEqual, "Gen:")
			convey.So(cfg.Markers().Comment, convey.ShouldEqual, "[Kommentar]")
			convey.So(cfg.Labels().Yes, convey.ShouldEqual, "Ja")
			convey.So(cfg.Labels().Abstain, convey.ShouldEqual, "Ich kann diese Frage nicht beantworten")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When the threshold is above 100", func() {
			cfg.Threshold = 100.5
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the threshold is negative", func() {
			cfg.Threshold = -1
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the threshold is exactly 0 or 100", func() {
			cfg.Threshold = 0
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			cfg.Threshold = 100
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When a marker is blank", func() {
			cfg.GeneMarker = "  "
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "gene_marker")
		})

		convey.Convey("When a label is blank", func() {
			cfg.AbstainLabel = ""
			err := cfg.Validate()
			convey.So(err.Error(), convey.ShouldContainSubstring, "abstain_label")
		})

		convey.Convey("When a file ledger has no path", func() {
			cfg.LedgerBackend = "sqlite"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			cfg.LedgerPath = "reviews.db"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the ledger backend is unknown", func() {
			cfg.LedgerBackend = "redis"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the upload cap is not positive", func() {
			cfg.MaxUploadBytes = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
