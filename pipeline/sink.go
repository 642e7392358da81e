// Package pipeline reports run results to the build system that invoked the
// checker.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/lukemcguire/zombielinks/result"
)

// Sink kinds accepted by Detect.
const (
	KindAuto    = "auto"
	KindConsole = "console"
	KindAzure   = "azure"
	KindGitHub  = "github"
)

// ErrUnknownSink is returned by Detect for an unsupported sink kind.
var ErrUnknownSink = errors.New("unknown sink")

// Sink receives log messages and the final verdict of a run.
type Sink interface {
	Debug(msg string)
	Warning(msg string)
	Error(msg string)
	SetResult(verdict result.Verdict, msg string)
}

// Detect returns the sink for kind. KindAuto picks Azure Pipelines when
// TF_BUILD is set, GitHub Actions when GITHUB_ACTIONS is set, and the
// console otherwise.
func Detect(kind string, w io.Writer, logger *zap.Logger) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindAuto:
		switch {
		case os.Getenv("TF_BUILD") != "":
			return NewAzureSink(w), nil
		case os.Getenv("GITHUB_ACTIONS") == "true":
			return NewGitHubSink(w), nil
		}
		return NewConsoleSink(logger), nil
	case KindConsole:
		return NewConsoleSink(logger), nil
	case KindAzure:
		return NewAzureSink(w), nil
	case KindGitHub:
		return NewGitHubSink(w), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSink, kind)
}

// AzureSink writes Azure Pipelines logging commands.
type AzureSink struct {
	w io.Writer
}

// NewAzureSink creates an AzureSink writing to w.
func NewAzureSink(w io.Writer) *AzureSink {
	return &AzureSink{w: w}
}

var azureEscaper = strings.NewReplacer("%", "%AZP25", "\r", "%0D", "\n", "%0A")

// Debug writes a ##[debug] line.
func (s *AzureSink) Debug(msg string) {
	fmt.Fprintf(s.w, "##[debug]%s\n", azureEscaper.Replace(msg))
}

// Warning logs a warning issue.
func (s *AzureSink) Warning(msg string) {
	fmt.Fprintf(s.w, "##vso[task.logissue type=warning]%s\n", azureEscaper.Replace(msg))
}

// Error logs an error issue.
func (s *AzureSink) Error(msg string) {
	fmt.Fprintf(s.w, "##vso[task.logissue type=error]%s\n", azureEscaper.Replace(msg))
}

// SetResult completes the task with verdict.
func (s *AzureSink) SetResult(verdict result.Verdict, msg string) {
	fmt.Fprintf(s.w, "##vso[task.complete result=%s;]%s\n", verdict, azureEscaper.Replace(msg))
}

// GitHubSink writes GitHub Actions workflow commands.
type GitHubSink struct {
	w io.Writer
}

// NewGitHubSink creates a GitHubSink writing to w.
func NewGitHubSink(w io.Writer) *GitHubSink {
	return &GitHubSink{w: w}
}

var githubEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

// Debug writes a ::debug:: command.
func (s *GitHubSink) Debug(msg string) {
	fmt.Fprintf(s.w, "::debug::%s\n", githubEscaper.Replace(msg))
}

// Warning writes a ::warning:: annotation.
func (s *GitHubSink) Warning(msg string) {
	fmt.Fprintf(s.w, "::warning::%s\n", githubEscaper.Replace(msg))
}

// Error writes an ::error:: annotation.
func (s *GitHubSink) Error(msg string) {
	fmt.Fprintf(s.w, "::error::%s\n", githubEscaper.Replace(msg))
}

// SetResult emits a notice on success and an error on failure. The process
// exit code carries the verdict itself.
func (s *GitHubSink) SetResult(verdict result.Verdict, msg string) {
	if verdict == result.VerdictFailed {
		s.Error(msg)
		return
	}
	fmt.Fprintf(s.w, "::notice::%s\n", githubEscaper.Replace(msg))
}

// ConsoleSink logs through zap.
type ConsoleSink struct {
	logger *zap.Logger
}

// NewConsoleSink creates a ConsoleSink. A nil logger discards everything.
func NewConsoleSink(logger *zap.Logger) *ConsoleSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSink{logger: logger}
}

// Debug logs msg at debug level.
func (s *ConsoleSink) Debug(msg string) { s.logger.Debug(msg) }

// Warning logs msg at warn level.
func (s *ConsoleSink) Warning(msg string) { s.logger.Warn(msg) }

// Error logs msg at error level.
func (s *ConsoleSink) Error(msg string) { s.logger.Error(msg) }

// SetResult logs the run summary, at error level when verdict is failed.
func (s *ConsoleSink) SetResult(verdict result.Verdict, msg string) {
	if verdict == result.VerdictFailed {
		s.logger.Error("run failed", zap.String("summary", msg))
		return
	}
	s.logger.Info("run complete", zap.String("summary", msg))
}
