package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pslima001/govy-function-current-sub002/config"
	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
)

// ContentListSuffix is appended to a document ref to name its stored
// MinerU content list.
const ContentListSuffix = ".content_list.json"

type MineruService struct {
	config     *config.MineruConfig
	httpClient *http.Client
}

// MineruTaskRequest represents the request to create an extraction task
type MineruTaskRequest struct {
	URL          string `json:"url"`
	ModelVersion string `json:"model_version"`
	Callback     string `json:"callback,omitempty"`
	Seed         string `json:"seed,omitempty"`
	DataID       string `json:"data_id,omitempty"`
	EnableTable  bool   `json:"enable_table"`
	Language     string `json:"language,omitempty"`
}

// MineruTaskResponse represents the response from task creation
type MineruTaskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

// MineruTaskStatusResponse represents the task status query response
type MineruTaskStatusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	TraceID string `json:"trace_id"`
	Data    struct {
		TaskID          string `json:"task_id"`
		DataID          string `json:"data_id"`
		State           string `json:"state"` // pending, running, done, failed, converting
		FullZipURL      string `json:"full_zip_url,omitempty"`
		ErrorMsg        string `json:"err_msg,omitempty"`
		ModelVersion    string `json:"model_version,omitempty"`
		ExtractProgress struct {
			ExtractedPages int    `json:"extracted_pages"`
			TotalPages     int    `json:"total_pages"`
			StartTime      string `json:"start_time"`
		} `json:"extract_progress,omitempty"`
	} `json:"data"`
}

// MineruCallbackPayload represents the callback payload from MinerU
type MineruCallbackPayload struct {
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

func NewMineruService(cfg *config.MineruConfig) *MineruService {
	return &MineruService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// CreateTask creates a new extraction task. Table recognition is always
// requested since the item and location extractors depend on it.
func (s *MineruService) CreateTask(ctx context.Context, documentURL, dataID string) (*MineruTaskResponse, error) {
	reqBody := MineruTaskRequest{
		URL:          documentURL,
		ModelVersion: s.config.ModelVersion,
		DataID:       dataID,
		EnableTable:  true,
		Language:     "pt",
	}

	if s.config.CallbackURL != "" {
		reqBody.Callback = s.config.CallbackURL
		reqBody.Seed = s.config.Seed
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+"/extract/task", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	body, err := s.do(req)
	if err != nil {
		return nil, err
	}

	var result MineruTaskResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("MinerU API error: %s", result.Message)
	}

	logger.Info(ctx, "mineru task created", "task_id", result.Data.TaskID, "data_id", dataID)
	return &result, nil
}

// GetTaskStatus queries the status of a task
func (s *MineruService) GetTaskStatus(ctx context.Context, taskID string) (*MineruTaskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/extract/task/%s", s.config.APIURL, taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Accept", "*/*")

	body, err := s.do(req)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "mineru status response", "task_id", taskID, "body", string(body))

	var result MineruTaskStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("MinerU API error: %s", result.Message)
	}

	return &result, nil
}

// VerifyCallback verifies the callback checksum
func (s *MineruService) VerifyCallback(checksum, content string, uid string) bool {
	// Checksum = SHA256(uid + seed + content)
	data := uid + s.config.Seed + content
	hash := sha256.Sum256([]byte(data))
	expected := hex.EncodeToString(hash[:])
	return checksum == expected
}

// FetchContentList fetches a content list JSON from a direct URL.
func (s *MineruService) FetchContentList(ctx context.Context, jsonURL string) ([]byte, error) {
	body, err := s.get(ctx, jsonURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JSON: %w", err)
	}
	if err := checkContentList(body); err != nil {
		return nil, err
	}
	return body, nil
}

// FetchZipContentList downloads the result ZIP and returns the raw content
// list JSON inside it.
func (s *MineruService) FetchZipContentList(ctx context.Context, zipURL string) ([]byte, error) {
	logger.Info(ctx, "downloading mineru result", "url", zipURL)

	zipData, err := s.get(ctx, zipURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download ZIP: %w", err)
	}
	logger.Debug(ctx, "mineru result downloaded", "bytes", len(zipData))

	return ContentListFromZip(zipData)
}

// ContentListFromZip extracts the content list JSON from a MinerU result
// archive.
func ContentListFromZip(zipData []byte) ([]byte, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return nil, fmt.Errorf("failed to open ZIP: %w", err)
	}

	for _, file := range zipReader.File {
		if !strings.HasSuffix(file.Name, "content_list.json") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		if err := checkContentList(content); err != nil {
			continue
		}
		return content, nil
	}

	return nil, fmt.Errorf("no content list found in ZIP")
}

func checkContentList(content []byte) error {
	var blocks []json.RawMessage
	if err := json.Unmarshal(content, &blocks); err != nil {
		return fmt.Errorf("failed to parse content list: %w", err)
	}
	return nil
}

func (s *MineruService) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return s.do(req)
}

func (s *MineruService) do(req *http.Request) ([]byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}
	return body, nil
}
