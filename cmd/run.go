package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/avivkl/matchboard/internal/fetch"
	"github.com/avivkl/matchboard/internal/logger"
	"github.com/avivkl/matchboard/internal/matchsvc"
	"github.com/avivkl/matchboard/internal/pipeline"
	"github.com/avivkl/matchboard/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptBrowseJobs       = "Browse jobs"
	PromptBrowseCandidates = "Browse candidates"
	PromptSubmitJob        = "Submit a job from file"
	PromptSubmitCandidate  = "Submit a candidate from resume"
	PromptQuit             = "Quit"
	PromptBack             = "back"

	PromptChangeSort     = "Change sort"
	PromptEditFilters    = "Edit filters"
	PromptSetMinScore    = "Set minimum score"
	PromptRefetch        = "Refetch matches"
	PromptDownloadResume = "Download a resume"
	PromptDumpToFile     = "Dump matches to file"

	PromptFilterLocation  = "Location"
	PromptFilterLanguage  = "Language"
	PromptFilterMinSalary = "Minimum salary"
	PromptFilterMaxSalary = "Maximum salary"
	PromptFilterClear     = "Clear all filters"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive match console",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Float64("min-score", 40, "minimum match score threshold (0-100)")
	runCmd.Flags().String("sort", string(pipeline.SortScoreDesc), "initial sort key for match results")

	viper.BindPFlag("min-score", runCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("sort", runCmd.Flags().Lookup("sort"))
	viper.SetDefault("download-dir", ".")
}

type session struct {
	ctx      context.Context
	logger   *zap.Logger
	client   *matchsvc.Client
	config   *Config
	criteria pipeline.Criteria
	sortKey  pipeline.SortKey
	minScore float64
}

// run is the main command for the cli.
func run(_ *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting matchboard", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	// The token is optional: local JobMatcher deployments run without auth.
	token, err := secrets.Load(secrets.Source{
		Name:     "matchboard api token",
		File:     config.TokenFile,
		Env:      "MATCHBOARD_TOKEN_FILE",
		Optional: true,
	})
	if err != nil {
		logger.Fatal("loading api token",
			zap.Error(err),
			zap.String("hint", "set MATCHBOARD_TOKEN_FILE or the 'token-file' key in the configuration file"),
		)
	}

	client := matchsvc.New(ctx, logger, viper.GetString("base-url"), token)

	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	s := &session{
		ctx:      ctx,
		logger:   logger,
		client:   client,
		config:   config,
		criteria: criteriaFromConfig(config.Filters),
		sortKey:  pipeline.ParseSortKey(viper.GetString("sort")),
		minScore: viper.GetFloat64("min-score"),
	}

	modePrompt := promptui.Select{
		Label: "What would you like to do?",
		Items: []string{PromptBrowseJobs, PromptBrowseCandidates, PromptSubmitJob, PromptSubmitCandidate, PromptQuit},
	}

	for {
		_, mode, err := modePrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		switch mode {
		case PromptBrowseJobs:
			err = s.browse(matchsvc.SubjectJob)
		case PromptBrowseCandidates:
			err = s.browse(matchsvc.SubjectCandidate)
		case PromptSubmitJob:
			err = s.submitJob()
		case PromptSubmitCandidate:
			err = s.submitCandidate()
		case PromptQuit:
			return
		}

		if err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func criteriaFromConfig(filters *FiltersConfig) pipeline.Criteria {
	if filters == nil {
		return pipeline.Criteria{}
	}

	return pipeline.Criteria{
		Location:  filters.Location,
		Language:  filters.Language,
		MinSalary: filters.MinSalary,
		MaxSalary: filters.MaxSalary,
	}
}

// browse lists subjects of the given kind and opens the match console for the
// selected one.
func (s *session) browse(kind matchsvc.SubjectKind) error {
	labels, ids, err := s.listSubjects(kind)
	if err != nil {
		s.logger.Error("fetching subjects", zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}

	if len(ids) == 0 {
		s.logger.Info("nothing to browse", zap.String("kind", string(kind)))
		return nil
	}

	for {
		subjectPrompt := promptui.Select{
			Label: "Choose a subject and press ENTER",
			Items: append(append([]string{}, labels...), PromptBack),
		}

		idx, selected, err := subjectPrompt.Run()
		if err != nil {
			return err
		}

		if selected == PromptBack {
			return nil
		}

		if err := s.console(kind, ids[idx], labels[idx]); err != nil {
			return err
		}
	}
}

func (s *session) listSubjects(kind matchsvc.SubjectKind) ([]string, []string, error) {
	switch kind {
	case matchsvc.SubjectJob:
		fetcher := fetch.New(s.logger, func(context.Context) (*matchsvc.Jobs, error) {
			return s.client.GetJobs()
		})
		defer fetcher.Close()

		st := <-fetcher.Refetch(s.ctx)
		if st.Err != "" {
			return nil, nil, errors.New(st.Err)
		}

		labels := make([]string, 0, st.Data.Len())
		ids := make([]string, 0, st.Data.Len())
		for _, job := range st.Data.Items {
			labels = append(labels, fmt.Sprintf("%s / %s", job.Title, job.Location))
			ids = append(ids, job.ID)
		}
		return labels, ids, nil

	default:
		fetcher := fetch.New(s.logger, func(context.Context) (*matchsvc.Candidates, error) {
			return s.client.GetCandidates()
		})
		defer fetcher.Close()

		st := <-fetcher.Refetch(s.ctx)
		if st.Err != "" {
			return nil, nil, errors.New(st.Err)
		}

		labels := make([]string, 0, st.Data.Len())
		ids := make([]string, 0, st.Data.Len())
		for _, candidate := range st.Data.Items {
			labels = append(labels, fmt.Sprintf("%s / %s", candidate.Name, candidate.Location))
			ids = append(ids, candidate.ID)
		}
		return labels, ids, nil
	}
}

// console drives the filter/sort/render loop for one subject's match list.
func (s *session) console(kind matchsvc.SubjectKind, id, name string) error {
	log := logger.WithSubject(s.logger, string(kind), id)

	matches := fetch.NewMatchFetcher(log, s.client, s.minScore)
	defer matches.Close()

	st := <-matches.SetSubject(s.ctx, kind, id)

	for {
		if st.Err != "" {
			if matchsvc.IsNotFound(matches.LastError()) {
				log.Warn("subject no longer exists on the service",
					zap.String("subject", name),
					zap.String("detail", st.Err),
				)
				return nil
			}
			log.Error("fetching matches", zap.String("error", st.Err))
			return nil
		}

		visible := pipeline.Apply(st.Data, s.criteria, s.sortKey)
		s.render(name, visible)

		items := []string{
			PromptChangeSort, PromptEditFilters, PromptSetMinScore, PromptRefetch,
			PromptDownloadResume, PromptDumpToFile, PromptBack, PromptQuit,
		}

		actionPrompt := promptui.Select{
			Label: "Next action",
			Items: items,
		}

		_, action, err := actionPrompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptChangeSort:
			s.chooseSort()
		case PromptEditFilters:
			if err := s.editFilters(); err != nil {
				return err
			}
		case PromptSetMinScore:
			if next, ok := s.askMinScore(); ok {
				s.minScore = next
				st = <-matches.SetMinScore(s.ctx, next)
				continue
			}
		case PromptRefetch:
			st = <-matches.Refetch(s.ctx)
			continue
		case PromptDownloadResume:
			if err := s.downloadResume(kind, id, visible); err != nil {
				return err
			}
		case PromptDumpToFile:
			dump := &matchsvc.Matches{Items: visible}
			filename, err := dump.DumpToTmpFile()
			if err != nil {
				return fmt.Errorf("dump results to file: %w", err)
			}
			log.Info("dumped matches to file", zap.String("filename", filename))
		case PromptBack:
			return nil
		case PromptQuit:
			return errExit
		}
	}
}

func (s *session) render(name string, items []*matchsvc.Match) {
	fmt.Printf("\nMatches for %s — %d shown (min score %.0f, sort %s)\n", name, len(items), s.minScore, s.sortKey)
	for _, m := range items {
		fmt.Printf("  [%-6s] %5.1f  %s / %s (semantic %.1f, rule %.1f)\n",
			pipeline.BucketFor(m.Score), m.Score, m.SubjectName(), m.SubjectLocation(), m.SemanticScore, m.RuleScore)
		for _, reason := range m.MatchReasons {
			fmt.Printf("            - %s\n", reason)
		}
	}
}

func (s *session) chooseSort() {
	sortPrompt := promptui.Select{
		Label: "Sort matches by",
		Items: []string{
			string(pipeline.SortScoreDesc),
			string(pipeline.SortSalaryAsc),
			string(pipeline.SortSalaryDesc),
			string(pipeline.SortExperienceDesc),
			string(pipeline.SortExperienceAsc),
		},
	}

	_, selected, err := sortPrompt.Run()
	if err != nil {
		return
	}

	s.sortKey = pipeline.ParseSortKey(selected)
}

func (s *session) editFilters() error {
	for {
		filterPrompt := promptui.Select{
			Label: "Edit which filter?",
			Items: []string{PromptFilterLocation, PromptFilterLanguage, PromptFilterMinSalary, PromptFilterMaxSalary, PromptFilterClear, PromptBack},
		}

		_, selected, err := filterPrompt.Run()
		if err != nil {
			return err
		}

		switch selected {
		case PromptFilterLocation:
			s.criteria.Location = askString("Location contains (empty to clear)")
		case PromptFilterLanguage:
			s.criteria.Language = askString("Language contains (empty to clear)")
		case PromptFilterMinSalary:
			s.criteria.MinSalary = askSalary("Minimum salary (empty to clear)")
		case PromptFilterMaxSalary:
			s.criteria.MaxSalary = askSalary("Maximum salary (empty to clear)")
		case PromptFilterClear:
			s.criteria = pipeline.Criteria{}
		case PromptBack:
			return nil
		}
	}
}

func (s *session) askMinScore() (float64, bool) {
	value := askString(fmt.Sprintf("Minimum score (current %.0f)", s.minScore))
	if value == "" {
		return 0, false
	}

	score, err := strconv.ParseFloat(value, 64)
	if err != nil || score < 0 || score > 100 {
		s.logger.Warn("minimum score must be a number between 0 and 100", zap.String("input", value))
		return 0, false
	}

	return score, true
}

// downloadResume saves the resume of a matched candidate, or of the browsed
// candidate itself when browsing candidates.
func (s *session) downloadResume(kind matchsvc.SubjectKind, subjectID string, visible []*matchsvc.Match) error {
	candidateID := subjectID
	fallback := fmt.Sprintf("resume_%s", subjectID)

	if kind == matchsvc.SubjectJob {
		if len(visible) == 0 {
			s.logger.Info("no matched candidates to download a resume for")
			return nil
		}

		items := make([]string, 0, len(visible))
		for _, m := range visible {
			items = append(items, fmt.Sprintf("%s / %s", m.SubjectName(), m.SubjectLocation()))
		}

		candidatePrompt := promptui.Select{
			Label: "Whose resume?",
			Items: append(items, PromptBack),
		}

		idx, selected, err := candidatePrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		match := visible[idx]
		candidateID = match.SubjectID()
		fallback = fmt.Sprintf("resume_%s", candidateID)
		if match.Candidate != nil && match.Candidate.ResumeFilename != "" {
			fallback = match.Candidate.ResumeFilename
		}
	}

	downloader := fetch.NewDownloader(s.logger, fetch.DirSaver(viper.GetString("download-dir")))

	err := downloader.Download(s.ctx, func(context.Context) (*fetch.Payload, error) {
		resume, err := s.client.DownloadResume(candidateID)
		if err != nil {
			return nil, err
		}
		return &fetch.Payload{
			Data:        resume.Data,
			ContentType: resume.ContentType,
			Disposition: resume.Disposition,
		}, nil
	}, fallback)

	if err != nil {
		// The downloader keeps the generic message; the caller owns the
		// resource-specific wording.
		if matchsvc.IsNotFound(err) {
			s.logger.Warn("no resume uploaded for this candidate", zap.String("candidate_id", candidateID))
			return nil
		}
		s.logger.Error("downloading resume", zap.String("error", downloader.Err()))
	}

	return nil
}

// submitJob reads a job draft from a JSON file and posts it through an action
// runner, so rejection details surface the way the entry form shows them.
func (s *session) submitJob() error {
	path := askString("Path to a job JSON file")
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("reading job file", zap.Error(err))
		return nil
	}

	var draft matchsvc.JobDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		s.logger.Error("parsing job file", zap.Error(err))
		return nil
	}

	runner := fetch.NewActionRunner(s.logger)
	ok := runner.Execute(s.ctx, func(context.Context) error {
		_, err := s.client.CreateJob(&draft)
		return err
	})

	if !ok {
		s.logger.Error("job submission rejected", zap.String("error", runner.Err()))
		return nil
	}

	s.logger.Info("job submitted", zap.String("title", draft.Title))
	return nil
}

// submitCandidate parses a resume remotely, lets the user confirm the
// extracted draft, and creates the candidate with the resume attached.
func (s *session) submitCandidate() error {
	path := askString("Path to a resume file")
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("reading resume file", zap.Error(err))
		return nil
	}
	filename := filepath.Base(path)

	parsed, err := s.client.ParseResume(filename, data)
	if err != nil {
		s.logger.Error("parsing resume", zap.String("error", fetch.Message(err)))
		return nil
	}

	draft, err := matchsvc.DraftFromParsed(parsed)
	if err != nil {
		s.logger.Error("decoding parsed resume", zap.Error(err))
		return nil
	}

	if name := askString(fmt.Sprintf("Candidate name (parsed %q, empty to keep)", draft.Name)); name != "" {
		draft.Name = name
	}

	runner := fetch.NewActionRunner(s.logger)
	ok := runner.Execute(s.ctx, func(context.Context) error {
		_, err := s.client.CreateCandidate(draft, filename, data)
		return err
	})

	if !ok {
		s.logger.Error("candidate submission rejected", zap.String("error", runner.Err()))
		return nil
	}

	s.logger.Info("candidate submitted", zap.String("name", draft.Name))
	return nil
}

func askString(label string) string {
	prompt := promptui.Prompt{Label: label}
	value, err := prompt.Run()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

func askSalary(label string) *float64 {
	value := askString(label)
	if value == "" {
		return nil
	}

	salary, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}

	return &salary
}
