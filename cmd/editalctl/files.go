package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/pslima001/govy-function-current-sub002/items"
	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/service"
)

const localTenant = "local"

// fileObjects serves object keys from local paths.
type fileObjects map[string]string

func (f fileObjects) GetObject(_ context.Context, name string) ([]byte, error) {
	p, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", name, model.ErrProviderUnavailable)
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, model.ErrProviderUnavailable)
	}
	return data, err
}

// textFile is a plain text document on disk.
type textFile string

func (t textFile) Text(_ context.Context, _ model.Document) (string, error) {
	data, err := os.ReadFile(string(t))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", string(t), model.ErrProviderUnavailable)
	}
	return string(data), err
}

// inputFiles are the local views of one edital.
type inputFiles struct {
	text        string
	contentList string
	layout      string
	docx        string
}

func (in *inputFiles) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&in.text, "text", "", "Plain text of the edital")
	cmd.Flags().StringVar(&in.contentList, "content-list", "", "MinerU content_list.json")
	cmd.Flags().StringVar(&in.layout, "layout", "", "Parsed layout (*_parsed.json)")
	cmd.Flags().StringVar(&in.docx, "docx", "", "DOCX edital")
}

func (in inputFiles) empty() bool {
	return in.text == "" && in.contentList == "" && in.layout == "" && in.docx == ""
}

// document maps the given files onto the object keys the providers read.
// Table sources fill layers A and B in the order content list, layout,
// docx; the text comes from the first source that has any.
func (in inputFiles) document() (model.Document, service.Sources, error) {
	if in.empty() {
		return model.Document{}, service.Sources{}, errors.New("at least one of --text, --content-list, --layout or --docx is required")
	}

	ref := localTenant + "/edital.pdf"
	if in.docx != "" {
		ref = localTenant + "/edital.docx"
	}
	objects := fileObjects{}

	var tableSources []items.TableSource
	var texts service.TextChain
	if in.text != "" {
		texts = append(texts, textFile(in.text))
	}
	if in.contentList != "" {
		objects[service.ContentListKey(ref)] = in.contentList
		p := service.NewContentListProvider(objects)
		tableSources = append(tableSources, p)
		texts = append(texts, p)
	}
	if in.layout != "" {
		objects[service.LayoutKey(ref)] = in.layout
		p := service.NewLayoutProvider(objects)
		tableSources = append(tableSources, p)
		texts = append(texts, p)
	}
	if in.docx != "" {
		objects[ref] = in.docx
		p := service.NewDocxProvider(objects)
		tableSources = append(tableSources, p)
		texts = append(texts, p)
	}

	sources := service.Sources{Text: texts}
	if len(tableSources) > 0 {
		sources.TableA = tableSources[0]
	}
	if len(tableSources) > 1 {
		sources.TableB = tableSources[1]
	}
	return model.Document{Ref: ref, Tenant: localTenant}, sources, nil
}
