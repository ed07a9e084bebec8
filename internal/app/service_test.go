package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/adapters/csvfile"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/adapters/repository"
	service "github.com/HeikoBre/screening-dashboard-sandbox/internal/app"
	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

var testNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func csvOf(rows [][]string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.WriteAll(rows)
	return buf.String()
}

// surveyCSV has CFTR at 80% in both tracks and PAH at 40% national, 80% study.
func surveyCSV() string {
	return csvOf([][]string{
		{
			"ID",
			`Gen: CFTR Erkrankung: Mukoviszidose "nationalen"`,
			`Gen: CFTR Erkrankung: Mukoviszidose "nationalen" [Kommentar]`,
			`Gen: CFTR Erkrankung: Mukoviszidose "wissenschaftlicher"`,
			`Gen: PAH Erkrankung: Phenylketonurie "nationalen"`,
			`Gen: PAH Erkrankung: Phenylketonurie "wissenschaftlicher"`,
		},
		{"1", "Ja", "gut", "Ja", "Nein", "Ja"},
		{"2", "Ja", "", "Nein", "Nein", "Ja"},
		{"3", "Ja", "", "Ja", "Ja", "Ja"},
		{"4", "Ja", "besser", "Ja", "Ja", "Nein"},
		{"5", "Nein", "", "Ja", "Nein", "Ja"},
	})
}

func startedService(opts ...service.Option) *service.Service {
	opts = append([]service.Option{service.WithClock(clock)}, opts...)
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When it has not been started", func() {
			_, err := svc.LoadDataset(ctx, strings.NewReader(surveyCSV()), "x.csv")

			Convey("Then operations needing the ledger fail", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When starting and stopping the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When the ledger backend cannot be opened", func() {
			bad := service.New(service.WithLedgerBackend("tsv", ""))
			err := bad.Start(ctx)

			Convey("Then Start returns the ledger error", func() {
				So(errors.Is(err, repository.ErrMissingPath), ShouldBeTrue)
			})
		})
	})
}

func TestService_LoadDataset(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService()
		defer svc.Stop()
		ctx := context.Background()

		Convey("When nothing is loaded", func() {
			_, err := svc.Current(ctx)
			So(errors.Is(err, service.ErrNoDataset), ShouldBeTrue)
			_, err = svc.Genes(ctx)
			So(errors.Is(err, service.ErrNoDataset), ShouldBeTrue)
			_, err = svc.ExportRows(ctx)
			So(errors.Is(err, service.ErrNoDataset), ShouldBeTrue)
		})

		Convey("When loading a survey export", func() {
			ds, err := svc.LoadDataset(ctx, strings.NewReader(surveyCSV()), "survey.csv")
			So(err, ShouldBeNil)

			Convey("Then it describes the dataset", func() {
				So(ds.ID, ShouldNotBeEmpty)
				So(ds.Source, ShouldEqual, "survey.csv")
				So(ds.LoadedAt.Equal(testNow), ShouldBeTrue)
				So(ds.Delimiter, ShouldEqual, ",")
				So(ds.Encoding, ShouldEqual, csvfile.EncodingUTF8)
				So(ds.TotalResponses, ShouldEqual, 5)
				So(ds.Genes, ShouldEqual, 2)
				So(ds.Diagnostics.SurveyColumns, ShouldEqual, 5)
				So(ds.Diagnostics.IgnoredColumns, ShouldEqual, 1)
				So(ds.Diagnostics.SchemaEmpty, ShouldBeFalse)
			})

			Convey("Then Current returns the same dataset", func() {
				cur, err := svc.Current(ctx)
				So(err, ShouldBeNil)
				So(cur.ID, ShouldEqual, ds.ID)
				So(svc.GetStats()["datasetLoaded"], ShouldEqual, true)
				So(svc.GetStats()["genes"], ShouldEqual, 2)
			})

			Convey("Then the gene overview is sorted and classified", func() {
				genes, err := svc.Genes(ctx)
				So(err, ShouldBeNil)
				So(len(genes), ShouldEqual, 2)

				So(genes[0].Gene, ShouldEqual, "CFTR")
				So(genes[0].Disease, ShouldEqual, "Mukoviszidose")
				So(genes[0].NationalYesPct, ShouldEqual, 80.0)
				So(genes[0].National80, ShouldBeTrue)
				So(genes[0].Recommendation, ShouldEqual, "national_screening")
				So(genes[0].Reviewed, ShouldBeFalse)

				So(genes[1].Gene, ShouldEqual, "PAH")
				So(genes[1].NationalYesPct, ShouldEqual, 40.0)
				So(genes[1].StudyYesPct, ShouldEqual, 80.0)
				So(genes[1].National80, ShouldBeFalse)
				So(genes[1].Recommendation, ShouldEqual, "scientific_study_only")
			})

			Convey("Then the gene detail carries counts and comments", func() {
				d, err := svc.Gene(ctx, "CFTR")
				So(err, ShouldBeNil)
				So(d.National.YesCount, ShouldEqual, 4)
				So(d.National.NoCount, ShouldEqual, 1)
				So(d.National.N, ShouldEqual, 5)
				So(d.National.MeetsThreshold, ShouldBeTrue)
				So(d.National.Comments, ShouldResemble, []string{"gut", "besser"})
				So(d.Study.Comments, ShouldResemble, []string{})
				So(d.Review, ShouldBeNil)

				_, err = svc.Gene(ctx, "BRCA1")
				So(errors.Is(err, service.ErrUnknownGene), ShouldBeTrue)
			})

			Convey("And loading a second dataset", func() {
				_, err := svc.SetReview(ctx, "CFTR", "deferred", "")
				So(err, ShouldBeNil)

				next, err := svc.LoadDataset(ctx, strings.NewReader(surveyCSV()), "second.csv")
				So(err, ShouldBeNil)

				Convey("Then the new session replaces the old and reviews are reset", func() {
					So(next.ID, ShouldNotEqual, ds.ID)
					list, err := svc.Reviews(ctx)
					So(err, ShouldBeNil)
					So(len(list.Reviews), ShouldEqual, 0)
					So(svc.GetStats()["datasetsLoaded"], ShouldEqual, 2)
				})
			})

			Convey("And clearing it", func() {
				So(svc.ClearDataset(ctx), ShouldBeNil)

				Convey("Then no dataset is loaded", func() {
					_, err := svc.Current(ctx)
					So(errors.Is(err, service.ErrNoDataset), ShouldBeTrue)
					So(errors.Is(svc.ClearDataset(ctx), service.ErrNoDataset), ShouldBeTrue)
				})
			})
		})

		Convey("When loading an empty file", func() {
			_, err := svc.LoadDataset(ctx, strings.NewReader(""), "empty.csv")

			Convey("Then it is rejected as an empty table", func() {
				So(errors.Is(err, csvfile.ErrEmptyTable), ShouldBeTrue)
				_, err := svc.Current(ctx)
				So(errors.Is(err, service.ErrNoDataset), ShouldBeTrue)
			})
		})

		Convey("When loading a file without survey columns", func() {
			ds, err := svc.LoadDataset(ctx, strings.NewReader("ID,Alter\n1,30\n2,40\n"), "other.csv")

			Convey("Then it loads with an empty schema", func() {
				So(err, ShouldBeNil)
				So(ds.Diagnostics.SchemaEmpty, ShouldBeTrue)
				So(ds.TotalResponses, ShouldEqual, 2)
				genes, err := svc.Genes(ctx)
				So(err, ShouldBeNil)
				So(len(genes), ShouldEqual, 0)
				rows, err := svc.ExportRows(ctx)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 0)
			})
		})
	})
}

func TestService_Reviews(t *testing.T) {
	Convey("Given a service with a loaded dataset", t, func() {
		svc := startedService()
		defer svc.Stop()
		ctx := context.Background()
		_, err := svc.LoadDataset(ctx, strings.NewReader(surveyCSV()), "survey.csv")
		So(err, ShouldBeNil)

		Convey("When saving a review", func() {
			r, err := svc.SetReview(ctx, "PAH", "scientific_study", "Daten abwarten")
			So(err, ShouldBeNil)

			Convey("Then it is stored with a timestamp", func() {
				So(r.Gene, ShouldEqual, "PAH")
				So(r.Decision, ShouldEqual, "scientific_study")
				So(r.Notes, ShouldEqual, "Daten abwarten")
				So(r.UpdatedAt.Equal(testNow), ShouldBeTrue)
			})

			Convey("Then progress and the overview reflect it", func() {
				list, err := svc.Reviews(ctx)
				So(err, ShouldBeNil)
				So(len(list.Reviews), ShouldEqual, 1)
				So(list.Progress.Reviewed, ShouldEqual, 1)
				So(list.Progress.Total, ShouldEqual, 2)
				So(list.Progress.Label(), ShouldEqual, "1/2 Gene kommentiert")

				genes, err := svc.Genes(ctx)
				So(err, ShouldBeNil)
				So(genes[1].Reviewed, ShouldBeTrue)

				d, err := svc.Gene(ctx, "PAH")
				So(err, ShouldBeNil)
				So(d.Review, ShouldNotBeNil)
				So(d.Review.Decision, ShouldEqual, "scientific_study")
			})

			Convey("Then the export picks it up without reloading", func() {
				rows, err := svc.ExportRows(ctx)
				So(err, ShouldBeNil)
				So(rows[0].ReviewDecision, ShouldEqual, "unreviewed")
				So(rows[1].ReviewDecision, ShouldEqual, "scientific_study")
				So(rows[1].ReviewNotes, ShouldEqual, "Daten abwarten")
			})

			Convey("And saving it empty again", func() {
				_, err := svc.SetReview(ctx, "PAH", "", "   ")
				So(err, ShouldBeNil)

				Convey("Then the review is cleared", func() {
					list, err := svc.Reviews(ctx)
					So(err, ShouldBeNil)
					So(len(list.Reviews), ShouldEqual, 0)
					So(list.Progress.Reviewed, ShouldEqual, 0)
				})
			})

			Convey("And clearing it", func() {
				So(svc.ClearReview(ctx, "PAH"), ShouldBeNil)

				Convey("Then the export shows it unreviewed", func() {
					rows, err := svc.ExportRows(ctx)
					So(err, ShouldBeNil)
					So(rows[1].ReviewDecision, ShouldEqual, "unreviewed")
				})
			})
		})

		Convey("When saving notes without a decision", func() {
			_, err := svc.SetReview(ctx, "CFTR", "", "Rücksprache")
			So(err, ShouldBeNil)

			Convey("Then the export has an empty decision and the notes", func() {
				rows, err := svc.ExportRows(ctx)
				So(err, ShouldBeNil)
				So(rows[0].ReviewDecision, ShouldEqual, "")
				So(rows[0].ReviewNotes, ShouldEqual, "Rücksprache")
			})
		})

		Convey("When saving an invalid decision", func() {
			_, err := svc.SetReview(ctx, "CFTR", "maybe", "")
			So(errors.Is(err, model.ErrInvalidDecision), ShouldBeTrue)
		})

		Convey("When reviewing an unknown gene", func() {
			_, err := svc.SetReview(ctx, "BRCA1", "deferred", "")
			So(errors.Is(err, service.ErrUnknownGene), ShouldBeTrue)
			So(errors.Is(svc.ClearReview(ctx, "BRCA1"), service.ErrUnknownGene), ShouldBeTrue)
		})

		Convey("When exporting CSV", func() {
			_, err := svc.SetReview(ctx, "CFTR", "national_screening", "eindeutig")
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			name, err := svc.ExportCSV(ctx, &buf)
			So(err, ShouldBeNil)

			Convey("Then it writes one line per gene under the header", func() {
				So(name, ShouldEqual, "gNBS_Expertenreview_Zusammenfassung_20240501.csv")
				out := strings.TrimPrefix(buf.String(), "\ufeff")
				lines := strings.Split(strings.TrimSpace(out), "\n")
				So(len(lines), ShouldEqual, 3)
				So(lines[0], ShouldStartWith, "Gen,Erkrankung,")
				So(lines[1], ShouldStartWith, "CFTR,Mukoviszidose,80.0,5,80.0,5,Yes,gut | besser,,national_screening,national_screening,eindeutig")
			})
		})
	})
}

func TestService_Options(t *testing.T) {
	Convey("Given a service that keeps reviews across loads", t, func() {
		path := filepath.Join(t.TempDir(), "reviews.tsv")
		svc := startedService(
			service.WithResetOnLoad(false),
			service.WithLedgerBackend(repository.BackendTSV, path),
			service.WithThreshold(90),
			service.WithExportTotal(true),
		)
		defer svc.Stop()
		ctx := context.Background()

		_, err := svc.LoadDataset(ctx, strings.NewReader(surveyCSV()), "a.csv")
		So(err, ShouldBeNil)
		_, err = svc.SetReview(ctx, "CFTR", "deferred", "")
		So(err, ShouldBeNil)

		Convey("When loading another dataset", func() {
			_, err := svc.LoadDataset(ctx, strings.NewReader(surveyCSV()), "b.csv")
			So(err, ShouldBeNil)

			Convey("Then the review survives", func() {
				list, err := svc.Reviews(ctx)
				So(err, ShouldBeNil)
				So(len(list.Reviews), ShouldEqual, 1)
				So(svc.GetStats()["ledgerBackend"], ShouldEqual, "tsv")
			})
		})

		Convey("When classifying with a 90% threshold", func() {
			genes, err := svc.Genes(ctx)
			So(err, ShouldBeNil)

			Convey("Then 80% no longer meets consensus", func() {
				So(genes[0].National80, ShouldBeFalse)
				So(genes[0].Recommendation, ShouldEqual, "not_recommended")
			})
		})

		Convey("When exporting with the total column", func() {
			var buf bytes.Buffer
			_, err := svc.ExportCSV(ctx, &buf)
			So(err, ShouldBeNil)

			Convey("Then every row starts with the response count", func() {
				out := strings.TrimPrefix(buf.String(), "\ufeff")
				lines := strings.Split(strings.TrimSpace(out), "\n")
				So(lines[0], ShouldStartWith, "Gesamt_Responses,Gen,")
				So(lines[1], ShouldStartWith, "5,CFTR,")
			})
		})
	})
}

// pausingStore blocks in Reset, after the underlying reset, while armed.
type pausingStore struct {
	repository.Store
	armed   bool
	reset   chan struct{}
	release chan struct{}
}

func (p *pausingStore) Reset(ctx context.Context) error {
	if err := p.Store.Reset(ctx); err != nil {
		return err
	}
	if p.armed {
		close(p.reset)
		<-p.release
	}
	return nil
}

func TestService_ReviewDuringReload(t *testing.T) {
	Convey("Given a loaded dataset and a ledger that pauses after reset", t, func() {
		ctx := context.Background()
		store := &pausingStore{
			Store:   repository.NewMemStore(),
			reset:   make(chan struct{}),
			release: make(chan struct{}),
		}
		svc := startedService(service.WithLedger(store))
		defer svc.Stop()

		_, err := svc.LoadDataset(ctx, strings.NewReader(surveyCSV()), "first.csv")
		So(err, ShouldBeNil)
		store.armed = true

		pahOnly := csvOf([][]string{
			{"ID", `Gen: PAH Erkrankung: Phenylketonurie "nationalen"`},
			{"1", "Ja"},
		})

		Convey("When a review for a gene of the old dataset races the reload", func() {
			loadDone := make(chan error, 1)
			go func() {
				_, err := svc.LoadDataset(ctx, strings.NewReader(pahOnly), "second.csv")
				loadDone <- err
			}()
			<-store.reset

			reviewDone := make(chan error, 1)
			go func() {
				_, err := svc.SetReview(ctx, "CFTR", "national_screening", "late")
				reviewDone <- err
			}()
			time.Sleep(50 * time.Millisecond)
			close(store.release)

			So(<-loadDone, ShouldBeNil)
			reviewErr := <-reviewDone

			Convey("Then the review is checked against the new dataset and not stored", func() {
				So(errors.Is(reviewErr, service.ErrUnknownGene), ShouldBeTrue)
				_, err := store.Get(ctx, "CFTR")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				list, err := svc.Reviews(ctx)
				So(err, ShouldBeNil)
				So(list.Reviews, ShouldBeEmpty)
			})
		})
	})
}
