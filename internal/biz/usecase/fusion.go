package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
)

const (
	// MaxAttachmentBytes is the largest attachment that will be converted
	MaxAttachmentBytes = 50 << 20
	// MaxFusedURLs caps how many links are fetched per message
	MaxFusedURLs = 2
)

// Source tags recorded on a fusion result
const (
	SourceText = "text"
	SourceFile = "file"
	SourceURL  = "url"
)

var (
	urlRe = regexp.MustCompile(`https?://[^\s<>|"'）」。、]+`)

	assetSuffixes = []string{
		".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico", ".bmp",
		".css", ".js", ".json", ".xml",
		".zip", ".gz", ".tar", ".rar", ".7z",
		".mp3", ".mp4", ".mov", ".wav", ".avi", ".webm",
	}
	deniedHosts = []string{
		"slack.com", "slack-edge.com", "slack-files.com", "slack-redir.net",
		"feishu.cn", "larksuite.com", "larkoffice.com",
		"google-analytics.com", "googletagmanager.com", "doubleclick.net",
		"t.co", "bit.ly",
	}
)

// FusionResult is the set of sources found in one message
type FusionResult struct {
	HasContent bool
	SourceTags []string
	FusedText  string
	File       *domain.FileRef
	URLs       []string
}

// FusionUsecase collects text, one attachment and links into one corpus
type FusionUsecase struct {
	converter repo.ConverterRepo
	fetcher   repo.WebFetcherRepo
}

// NewFusionUsecase creates a new fusion usecase; fetcher may be nil
func NewFusionUsecase(converter repo.ConverterRepo, fetcher repo.WebFetcherRepo) *FusionUsecase {
	return &FusionUsecase{converter: converter, fetcher: fetcher}
}

// Collect inspects an envelope without any I/O
func (uc *FusionUsecase) Collect(env *domain.Envelope) *FusionResult {
	res := &FusionResult{}

	res.URLs = ExtractURLs(env.Text, MaxFusedURLs)
	if StripURLs(env.Text) != "" {
		res.FusedText = strings.TrimSpace(env.Text)
		res.SourceTags = append(res.SourceTags, SourceText)
	}

	if f := SelectAttachment(env.Files); f != nil {
		res.File = f
		res.SourceTags = append(res.SourceTags, SourceFile+":"+f.Kind().String())
	}
	if len(res.URLs) > 0 {
		res.SourceTags = append(res.SourceTags, SourceURL)
	}

	res.HasContent = res.FusedText != "" || res.File != nil || len(res.URLs) > 0
	return res
}

// HasExternalContent reports whether a document or link accompanies the text
func (r *FusionResult) HasExternalContent() bool {
	return r.File != nil || len(r.URLs) > 0
}

// Build downloads, converts and fetches the collected sources into one
// labelled corpus. Failures are inlined; an error is returned only when no
// source produced any content.
func (uc *FusionUsecase) Build(ctx context.Context, res *FusionResult, dl repo.FileDownloader) (string, error) {
	var sections []string
	var firstErr error
	produced := false

	if res.FusedText != "" {
		sections = append(sections, "【ユーザーのメッセージ】\n"+res.FusedText)
		produced = true
	}

	if res.File != nil {
		text, err := uc.convertFile(ctx, res.File, dl)
		if err != nil {
			fmt.Printf("[Fusion] Attachment %s failed: %v\n", res.File.Name, err)
			sections = append(sections, fmt.Sprintf("【添付ファイル: %s（読み込みエラー）】\n%v", res.File.Name, err))
			if firstErr == nil {
				firstErr = err
			}
		} else {
			sections = append(sections, fmt.Sprintf("【添付ファイル: %s】\n%s", res.File.Name, text))
			produced = true
		}
	}

	for _, u := range res.URLs {
		if uc.fetcher == nil {
			break
		}
		text, err := uc.fetcher.Fetch(ctx, u)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("empty page")
		}
		if err != nil {
			fmt.Printf("[Fusion] Fetch %s failed: %v\n", u, err)
			sections = append(sections, fmt.Sprintf("【Webページ: %s（取得エラー）】\n%v", u, err))
			if firstErr == nil {
				firstErr = &domain.ConversionError{Source: u, Err: err}
			}
			continue
		}
		sections = append(sections, fmt.Sprintf("【Webページ: %s】\n%s", u, strings.TrimSpace(text)))
		produced = true
	}

	if !produced {
		if firstErr != nil {
			var ce *domain.ConversionError
			if errors.As(firstErr, &ce) {
				return "", ce
			}
			return "", &domain.ConversionError{Source: "message", Err: firstErr}
		}
		return "", domain.ErrNoContent
	}
	return strings.Join(sections, "\n\n"), nil
}

func (uc *FusionUsecase) convertFile(ctx context.Context, f *domain.FileRef, dl repo.FileDownloader) (string, error) {
	if uc.converter == nil || dl == nil {
		return "", &domain.ConversionError{Source: f.Name, Err: errors.New("document conversion is not configured")}
	}
	data, err := dl.Download(ctx, *f)
	if err != nil {
		return "", &domain.ConversionError{Source: f.Name, Err: fmt.Errorf("download: %w", err)}
	}
	if len(data) > MaxAttachmentBytes {
		return "", &domain.ConversionError{Source: f.Name, Err: fmt.Errorf("file too large (%d bytes)", len(data))}
	}
	text, err := uc.converter.Convert(ctx, data, f.Name, f.MimeType)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", &domain.ConversionError{Source: f.Name, Err: errors.New("no text in document")}
	}
	return strings.TrimSpace(text), nil
}

// StripURLs removes every link from text
func StripURLs(text string) string {
	return strings.TrimSpace(urlRe.ReplaceAllString(text, ""))
}

// SelectAttachment picks the highest-priority supported attachment
// (PDF, then Word, then Excel) within the size limit
func SelectAttachment(files []domain.FileRef) *domain.FileRef {
	var best *domain.FileRef
	bestKind := domain.AttachmentNone
	for i := range files {
		f := &files[i]
		if f.Size > MaxAttachmentBytes {
			fmt.Printf("[Fusion] Skipping %s: %d bytes exceeds limit\n", f.Name, f.Size)
			continue
		}
		if k := f.Kind(); k > bestKind {
			best, bestKind = f, k
		}
	}
	return best
}

// ExtractURLs returns up to limit content links from text
func ExtractURLs(text string, limit int) []string {
	var out []string
	seen := map[string]bool{}
	for _, raw := range urlRe.FindAllString(text, -1) {
		u := strings.TrimRight(raw, ".,;:!?)]>")
		if seen[u] || !isContentURL(u) {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out
}

func isContentURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range deniedHosts {
		if host == d || strings.HasSuffix(host, "."+d) {
			return false
		}
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, s := range assetSuffixes {
		if ext == s {
			return false
		}
	}
	return true
}
