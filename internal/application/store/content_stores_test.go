package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/portfolio-cms/adapters/memory"
	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/application/usecase/asset"
	"github.com/khoahotran/portfolio-cms/internal/domain/aboutme"
	"github.com/khoahotran/portfolio-cms/internal/domain/experience"
	"github.com/khoahotran/portfolio-cms/internal/domain/skill"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

type ContentStoresTestSuite struct {
	suite.Suite
	ctx context.Context

	aboutColl   *recordingCollection[aboutme.AboutMe]
	sectionColl *recordingCollection[skill.Section]
	skillColl   *recordingCollection[skill.Skill]
	expColl     *recordingCollection[experience.Experience]

	assets    *memory.AssetStorage
	assetSrv  *httptest.Server
	published *capturePublisher

	about    *AboutMeStore
	section  *SkillsSectionStore
	skills   *SkillIconsStore
	timeline *ExperienceStore
}

func TestContentStores(t *testing.T) {
	suite.Run(t, new(ContentStoresTestSuite))
}

func (s *ContentStoresTestSuite) SetupTest() {
	s.ctx = context.Background()
	log := logger.NewNopLogger()

	s.aboutColl = record[aboutme.AboutMe](memory.NewCollection[aboutme.AboutMe](aboutme.Table, aboutme.Columns()))
	s.sectionColl = record[skill.Section](memory.NewCollection[skill.Section](skill.SectionTable, skill.SectionColumns()))
	s.skillColl = record[skill.Skill](memory.NewCollection[skill.Skill](skill.Table, skill.Columns()))
	s.expColl = record[experience.Experience](memory.NewCollection[experience.Experience](experience.Table, experience.Columns()))

	s.assets = memory.NewAssetStorage("")
	s.assetSrv = httptest.NewServer(s.assets)
	s.assets.SetBaseURL(s.assetSrv.URL)
	s.published = &capturePublisher{}

	uploader := asset.NewUploadAssetUseCase(s.assets, "skills", log)

	s.about = NewAboutMeStore(s.aboutColl, s.published, log)
	s.section = NewSkillsSectionStore(s.sectionColl, s.published, log)
	s.skills = NewSkillIconsStore(s.skillColl, uploader, s.published, log)
	s.timeline = NewExperienceStore(s.expColl, s.published, log)
}

func (s *ContentStoresTestSuite) TearDownTest() {
	s.assetSrv.Close()
}

func icon(name, body string) *asset.File {
	return &asset.File{Name: name, ContentType: "image/png", Size: int64(len(body)), Body: bytes.NewBufferString(body)}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *ContentStoresTestSuite) TestAboutMe_UpsertCreatesThenUpdates() {
	status := s.about.UpdateAbout(s.ctx, aboutme.Input{Title: "Hi", Description: "I build things"}).Status
	s.Equal(http.StatusCreated, status)

	status = s.about.UpdateAbout(s.ctx, aboutme.Input{Title: "Hello", Description: "I build things"}).Status
	s.Equal(http.StatusOK, status)

	s.Equal(1, s.aboutColl.inserts)
	s.Equal(1, s.aboutColl.updates)

	rows, err := s.aboutColl.Select(s.ctx, service.Query{})
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("Hello", rows[0].Title)

	st := s.about.Snapshot()
	s.Require().NotNil(st.Data)
	s.Equal("Hello", st.Data.Title)
	s.Equal(rows[0].ID, st.Data.ID)
	s.False(st.Loading)
	s.Empty(st.Error)
	s.Equal([]service.ContentAction{service.ContentCreated, service.ContentUpdated}, s.published.actions())
}

func (s *ContentStoresTestSuite) TestAboutMe_FetchEmptyRecordsError() {
	s.about.FetchAbout(s.ctx)

	st := s.about.Snapshot()
	s.Nil(st.Data)
	s.False(st.Loading)
	s.Contains(st.Error, "0 rows")
}

func (s *ContentStoresTestSuite) TestAboutMe_FailedFetchKeepsCachedRow() {
	s.Require().Equal(http.StatusCreated, s.about.UpdateAbout(s.ctx, aboutme.Input{Title: "Hi"}).Status)
	s.about.FetchAbout(s.ctx)
	s.Require().Empty(s.about.Snapshot().Error)

	s.aboutColl.failReads(errors.New("connection reset"))
	s.about.FetchAbout(s.ctx)

	st := s.about.Snapshot()
	s.Equal("connection reset", st.Error)
	s.Require().NotNil(st.Data)
	s.Equal("Hi", st.Data.Title)
	s.False(st.Loading)
}

func (s *ContentStoresTestSuite) TestAboutMe_FailedExistenceCheckSkipsWrite() {
	s.aboutColl.failReads(errors.New("timeout"))

	s.Equal(0, s.about.UpdateAbout(s.ctx, aboutme.Input{Title: "Hi"}).Status)
	s.Equal(0, s.aboutColl.inserts)
	s.Equal(0, s.aboutColl.updates)
	s.Equal("timeout", s.about.Snapshot().Error)
}

func (s *ContentStoresTestSuite) TestSkillsSection_Upsert() {
	s.Equal(http.StatusCreated, s.section.UpdateSection(s.ctx, "Skills", "What I use").Status)
	s.Equal(http.StatusOK, s.section.UpdateSection(s.ctx, "Stack", "What I use").Status)

	s.section.FetchSection(s.ctx)
	st := s.section.Snapshot()
	s.Require().NotNil(st.Data)
	s.Equal("Stack", st.Data.Title)
	s.Equal(1, s.sectionColl.inserts)
}

func (s *ContentStoresTestSuite) TestSkills_AddWithoutIcon() {
	s.Equal(http.StatusCreated, s.skills.AddSkill(s.ctx, "Go", nil).Status)

	st := s.skills.Snapshot()
	s.Require().Len(st.Data, 1)
	s.Equal("Go", st.Data[0].Name)
	s.Nil(st.Data[0].IconURL)
	s.Equal(0, s.assets.Len())
}

func (s *ContentStoresTestSuite) TestSkills_AddWithIconServesUploadedBytes() {
	s.Equal(http.StatusCreated, s.skills.AddSkill(s.ctx, "Go", icon("gopher.PNG", "png-bytes")).Status)

	st := s.skills.Snapshot()
	s.Require().Len(st.Data, 1)
	s.Require().NotNil(st.Data[0].IconURL)
	s.Contains(*st.Data[0].IconURL, "/skills/")
	s.True(bytes.HasSuffix([]byte(*st.Data[0].IconURL), []byte(".png")))

	resp, err := http.Get(*st.Data[0].IconURL)
	s.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("png-bytes", string(body))
}

func (s *ContentStoresTestSuite) TestSkills_UpdateWithoutIconKeepsURL() {
	s.Require().Equal(http.StatusCreated, s.skills.AddSkill(s.ctx, "Go", icon("go.png", "a")).Status)
	before := s.skills.Snapshot().Data[0]

	s.Equal(http.StatusOK, s.skills.UpdateSkill(s.ctx, before.ID, "Golang", nil).Status)

	after := s.skills.Snapshot().Data
	s.Require().Len(after, 1)
	s.Equal("Golang", after[0].Name)
	s.Require().NotNil(after[0].IconURL)
	s.Equal(*before.IconURL, *after[0].IconURL)
}

func (s *ContentStoresTestSuite) TestSkills_UpdateWithIconReplacesURL() {
	s.Require().Equal(http.StatusCreated, s.skills.AddSkill(s.ctx, "Go", icon("go.png", "a")).Status)
	before := s.skills.Snapshot().Data[0]

	s.Equal(http.StatusOK, s.skills.UpdateSkill(s.ctx, before.ID, "Go", icon("go.svg", "b")).Status)

	after := s.skills.Snapshot().Data[0]
	s.Require().NotNil(after.IconURL)
	s.NotEqual(*before.IconURL, *after.IconURL)
	s.Equal(2, s.assets.Len())
}

func (s *ContentStoresTestSuite) TestSkills_FailedUploadAbortsInsert() {
	s.assets.FailUploads(errors.New("bucket unavailable"))

	s.Equal(0, s.skills.AddSkill(s.ctx, "Go", icon("go.png", "a")).Status)
	s.Equal(0, s.skillColl.inserts)

	st := s.skills.Snapshot()
	s.Empty(st.Data)
	s.Contains(st.Error, "bucket unavailable")
	s.False(st.Loading)
}

func (s *ContentStoresTestSuite) TestSkills_FailureOutlivesLaterAction() {
	s.assets.FailUploads(errors.New("bucket unavailable"))
	res := s.skills.AddSkill(s.ctx, "Go", icon("go.png", "a"))

	// A request landing right after the failure resets the shared state.
	s.skills.FetchSkills(s.ctx)
	s.Empty(s.skills.Snapshot().Error)

	s.False(res.OK())
	s.Contains(res.Error, "bucket unavailable")
}

func (s *ContentStoresTestSuite) TestSkills_OrderedByCreation() {
	for _, name := range []string{"Go", "SQL", "Kafka"} {
		s.Require().Equal(http.StatusCreated, s.skills.AddSkill(s.ctx, name, nil).Status)
	}

	var names []string
	for _, sk := range s.skills.Snapshot().Data {
		names = append(names, sk.Name)
	}
	s.Equal([]string{"Go", "SQL", "Kafka"}, names)
}

func (s *ContentStoresTestSuite) TestSkills_DeleteRemovesAfterConfirmation() {
	s.Require().Equal(http.StatusCreated, s.skills.AddSkill(s.ctx, "Go", nil).Status)
	s.Require().Equal(http.StatusCreated, s.skills.AddSkill(s.ctx, "SQL", nil).Status)
	goID := s.skills.Snapshot().Data[0].ID

	s.Equal(http.StatusNoContent, s.skills.DeleteSkill(s.ctx, goID).Status)
	s.Require().Len(s.skills.Snapshot().Data, 1)
	s.Equal("SQL", s.skills.Snapshot().Data[0].Name)

	s.skills.FetchSkills(s.ctx)
	s.Require().Len(s.skills.Snapshot().Data, 1)
	s.Equal("SQL", s.skills.Snapshot().Data[0].Name)
}

func (s *ContentStoresTestSuite) TestSkills_DeleteUnknownKeepsCache() {
	s.Require().Equal(http.StatusCreated, s.skills.AddSkill(s.ctx, "Go", nil).Status)

	s.Equal(0, s.skills.DeleteSkill(s.ctx, uuid.New()).Status)

	st := s.skills.Snapshot()
	s.Len(st.Data, 1)
	s.NotEmpty(st.Error)
}

func (s *ContentStoresTestSuite) TestExperience_OrderedByStartThenCreation() {
	end := date(2022, time.June, 30)
	inputs := []experience.Input{
		{Employer: "Acme", Role: "Intern", StartDate: date(2020, time.January, 1), EndDate: &end, EmploymentType: experience.Intern},
		{Employer: "Globex", Role: "Engineer", StartDate: date(2023, time.March, 1), EmploymentType: experience.FullTime},
		{Employer: "Initech", Role: "Consultant", StartDate: date(2023, time.March, 1), EmploymentType: experience.Contract},
	}
	for _, in := range inputs {
		s.Require().Equal(http.StatusCreated, s.timeline.AddExperience(s.ctx, in).Status)
	}

	rows := s.timeline.Snapshot().Data
	s.Require().Len(rows, 3)
	s.Equal("Initech", rows[0].Employer)
	s.Equal("Globex", rows[1].Employer)
	s.Equal("Acme", rows[2].Employer)
	s.True(rows[0].Current())
	s.False(rows[2].Current())
	s.Equal(end, *rows[2].EndDate)
}

func (s *ContentStoresTestSuite) TestExperience_UpdateResortsLocally() {
	s.Require().Equal(http.StatusCreated, s.timeline.AddExperience(s.ctx, experience.Input{
		Employer: "Acme", StartDate: date(2020, time.January, 1), EmploymentType: experience.FullTime,
	}).Status)
	s.Require().Equal(http.StatusCreated, s.timeline.AddExperience(s.ctx, experience.Input{
		Employer: "Globex", StartDate: date(2021, time.January, 1), EmploymentType: experience.FullTime,
	}).Status)
	acme := s.timeline.Snapshot().Data[1]
	s.Require().Equal("Acme", acme.Employer)

	status := s.timeline.UpdateExperience(s.ctx, acme.ID, experience.Input{
		Employer: "Acme", StartDate: date(2024, time.January, 1), EmploymentType: experience.FullTime,
	}).Status
	s.Equal(http.StatusOK, status)

	rows := s.timeline.Snapshot().Data
	s.Equal("Acme", rows[0].Employer)
	s.Equal("Globex", rows[1].Employer)
}

func (s *ContentStoresTestSuite) TestExperience_InvalidEmploymentType() {
	status := s.timeline.AddExperience(s.ctx, experience.Input{Employer: "Acme", EmploymentType: "Volunteer"}).Status

	s.Equal(0, status)
	s.Equal(0, s.expColl.inserts)
	s.Contains(s.timeline.Snapshot().Error, "employment type")
}

func (s *ContentStoresTestSuite) TestExperience_DeleteThenFetch() {
	s.Require().Equal(http.StatusCreated, s.timeline.AddExperience(s.ctx, experience.Input{
		Employer: "Acme", StartDate: date(2020, time.January, 1), EmploymentType: experience.Freelance,
	}).Status)
	id := s.timeline.Snapshot().Data[0].ID

	s.Equal(http.StatusNoContent, s.timeline.DeleteExperience(s.ctx, id).Status)
	s.Empty(s.timeline.Snapshot().Data)

	s.timeline.FetchExperiences(s.ctx)
	s.Empty(s.timeline.Snapshot().Data)
	s.Empty(s.timeline.Snapshot().Error)
}

func (s *ContentStoresTestSuite) TestSubscribeReceivesLoadingTransitions() {
	var seen []bool
	unsubscribe := s.skills.Subscribe(func(st State[[]skill.Skill]) {
		seen = append(seen, st.Loading)
	})

	s.skills.FetchSkills(s.ctx)
	s.Equal([]bool{true, false}, seen)

	unsubscribe()
	s.skills.FetchSkills(s.ctx)
	s.Len(seen, 2)
}

func (s *ContentStoresTestSuite) TestSnapshotIsACopy() {
	s.Require().Equal(http.StatusCreated, s.skills.AddSkill(s.ctx, "Go", nil).Status)

	snap := s.skills.Snapshot()
	snap.Data[0].Name = "mutated"

	s.Equal("Go", s.skills.Snapshot().Data[0].Name)
}
