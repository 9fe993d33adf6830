package anm

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type ExportResult struct {
	Path     string
	Pages    int
	Replaced []string
	Appended []string
	Elapsed  time.Duration
	// ManifestErrors 写失败的描述文件数
	ManifestErrors int
}

// Exporter 把选中的动作写入 xfbin
type Exporter struct {
	Scene   SceneSource
	Options Options
	Logger  *log.Logger
	// ManifestDir 不为空时为每页写出 _page.json
	ManifestDir string
}

func NewExporter(scene SceneSource, opts Options) *Exporter {
	return &Exporter{Scene: scene, Options: opts, Logger: log.Default()}
}

// Export 注入模式下替换同名页或追加，否则新建容器。全部写入内存后一次写盘
func Export(scene SceneSource, anims []*Animation, outputPath string, inject bool, opts Options) (*ExportResult, error) {
	return NewExporter(scene, opts).Export(anims, outputPath, inject)
}

func (e *Exporter) Export(anims []*Animation, outputPath string, inject bool) (*ExportResult, error) {
	start := time.Now()
	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}
	if inject {
		if _, err := os.Stat(outputPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, &MissingFileError{Path: outputPath}
			}
			return nil, err
		}
	}
	if len(anims) == 0 {
		return nil, errors.New("no animations selected")
	}

	pages := make([]*Page, 0, len(anims))
	for _, anim := range anims {
		if err := validateAnimation(anim); err != nil {
			return nil, err
		}
		scene := e.Scene
		if anim.Scene != nil {
			scene = anim.Scene
		}
		if scene == nil {
			return nil, fmt.Errorf("animation %s: no scene", anim.Name)
		}
		p, err := AssemblePage(scene, anim, e.Options, logger)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}

	res := &ExportResult{Path: outputPath}
	var container *Xfbin
	if inject {
		var err error
		if container, err = XfbinReadFrom(outputPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", outputPath, err)
		}
		for i, p := range pages {
			name := anims[i].Name
			if container.ReplaceOrAppend(name, p) {
				res.Replaced = append(res.Replaced, name)
			} else {
				res.Appended = append(res.Appended, name)
			}
		}
	} else {
		container = NewXfbin()
		for i, p := range pages {
			container.AddPage(p)
			res.Appended = append(res.Appended, anims[i].Name)
		}
	}

	if err := XfbinWriteTo(outputPath, container); err != nil {
		return nil, fmt.Errorf("write %s: %w", outputPath, err)
	}
	// 容器已经写盘，描述文件写失败只记录警告
	if e.ManifestDir != "" {
		for i, p := range pages {
			dir := filepath.Join(e.ManifestDir, fmt.Sprintf("[%03d] %s (%s)", i, anims[i].Name, CHUNK_TYPE_ANM))
			if err := WritePageManifest(filepath.Join(dir, PAGE_MANIFEST_NAME), p); err != nil {
				logger.Printf("warning: manifest for %s not written: %v", anims[i].Name, err)
				res.ManifestErrors++
			}
		}
	}
	res.Pages = len(container.Pages)
	res.Elapsed = time.Since(start)
	logger.Printf("exported %s to %s in %.2fs (%d pages)", strings.Join(append(append([]string(nil), res.Replaced...), res.Appended...), ", "), outputPath, res.Elapsed.Seconds(), res.Pages)
	return res, nil
}

func validateAnimation(a *Animation) error {
	if a == nil {
		return errors.New("nil animation")
	}
	if a.Name == "" {
		return errors.New("animation has no name")
	}
	if a.FrameCount < 1 {
		return fmt.Errorf("animation %s: frame count %d", a.Name, a.FrameCount)
	}
	return nil
}
