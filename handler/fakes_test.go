package handler

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/pslima001/govy-function-current-sub002/service"
)

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failPut bool
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (f *fakeBlobs) UploadFile(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	if f.failPut {
		return errors.New("bucket offline")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = data
	return nil
}

func (f *fakeBlobs) GetPresignedURL(_ context.Context, name string) (string, error) {
	return "http://minio.test/editais/" + name, nil
}

func (f *fakeBlobs) DeleteFile(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, name)
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeBlobs) object(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[name]
	return data, ok
}

type fakeParser struct {
	taskErr  error
	states   []string
	content  []byte
	fetchErr error
	valid    bool

	mu    sync.Mutex
	polls int
}

func (p *fakeParser) CreateTask(_ context.Context, _, _ string) (*service.MineruTaskResponse, error) {
	if p.taskErr != nil {
		return nil, p.taskErr
	}
	resp := &service.MineruTaskResponse{}
	resp.Data.TaskID = "task-1"
	return resp, nil
}

func (p *fakeParser) GetTaskStatus(_ context.Context, taskID string) (*service.MineruTaskStatusResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	resp := &service.MineruTaskStatusResponse{}
	resp.Data.TaskID = taskID
	resp.Data.State = "running"
	if p.polls < len(p.states) {
		resp.Data.State = p.states[p.polls]
	}
	p.polls++
	if resp.Data.State == "done" {
		resp.Data.FullZipURL = "http://mineru.test/result.zip"
	}
	if resp.Data.State == "failed" {
		resp.Data.ErrorMsg = "unreadable pdf"
	}
	return resp, nil
}

func (p *fakeParser) FetchZipContentList(context.Context, string) ([]byte, error) {
	return p.content, p.fetchErr
}

func (p *fakeParser) FetchContentList(context.Context, string) ([]byte, error) {
	return p.content, p.fetchErr
}

func (p *fakeParser) VerifyCallback(_, _, _ string) bool {
	return p.valid
}
