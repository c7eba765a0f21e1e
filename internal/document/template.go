// Package document fills the rental contract and vehicle handover docx
// templates.
package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"vcar-client/internal/domain"
	"vcar-client/internal/logger"
)

type TemplateRef string

const (
	TemplateContract TemplateRef = "contract"
	TemplateHandover TemplateRef = "handover"
)

// AssetName is the template's file name on the asset host and in a local
// template directory.
func (r TemplateRef) AssetName() string {
	switch r {
	case TemplateContract:
		return "template_contract.docx"
	case TemplateHandover:
		return "vehicle_handover_template.docx"
	}
	return ""
}

// Filename is the name the rendered document is saved under.
func (r TemplateRef) Filename() string {
	switch r {
	case TemplateContract:
		return "Hop-dong-thue-xe.docx"
	case TemplateHandover:
		return "bien-ban-ban-giao-xe.docx"
	}
	return ""
}

// Keys returns the closed placeholder set of the template.
func (r TemplateRef) Keys() []string {
	switch r {
	case TemplateContract:
		return contractKeys
	case TemplateHandover:
		return handoverKeys
	}
	return nil
}

func (r TemplateRef) valid() bool {
	return r == TemplateContract || r == TemplateHandover
}

var contractKeys = []string{
	"Day", "Month", "Year", "DiaDiem",
	"TenBenA", "CMNDBenA", "A1_D", "A1_M", "A1_Y", "A1_Z", "DiaChiBenA", "DienThoaiBenA",
	"TenBenB", "CMNDBenB", "B1_D", "B1_M", "B1_Y", "B1_Z",
	"PassportBenB", "B2_D", "B2_M", "B2_Y", "B2_Z",
	"GPLXBenB", "B3_D", "B3_M", "B3_Y", "B3_Z",
	"DiaChiBenB", "DienThoaiBenB",
	"BienSoXe", "NhanHieu", "NamSanXuat", "MauXe", "SoDKXe", "NgayCapGiayDK", "NoiCapGiayDK", "TenChuXe",
	"DonGiaThue", "GioiHanQuangDuong", "PhiVuotQuangDuong",
	"GioBDThue", "PhutBDThue", "NgayBDThue", "GioKTThue", "PhutKTThue", "NgayKTThue",
	"PhiVuotTGThue", "TongTienThue", "DiaDiemBanGiaoXe",
	"chuKyChuXe", "chuKyKhachThue",
}

var handoverKeys = []string{
	"D", "M", "Y", "Location", "Lessor", "Lessee",
	"CarLabel", "CarType", "CarPaint", "CarYearManufacture", "CarLicensePlate", "CarSeat",
	"RHour", "RDay", "RMonth", "RYear", "X", "Odo", "Fuel", "PersonalItems",
	"x1", "x2", "x3", "x4",
	"CMND", "MotoType", "MotoLicensePlate", "MotoLicense", "MoneyCollateral", "OtherCollateral",
	"LessorHandoverSign", "LesseeHandoverSign", "LessorReturnSign", "LesseeReturnSign",
	"ReHour", "ReDay", "ReMonth", "ReYear", "ReOdo", "ReFuel", "RePersonalItem",
}

// TemplateSource loads the raw docx bytes of a template.
type TemplateSource interface {
	Load(ctx context.Context, ref TemplateRef) ([]byte, error)
}

// AssetFetcher downloads a named static asset.
type AssetFetcher interface {
	FetchAsset(ctx context.Context, name string) ([]byte, error)
}

// AssetSource downloads templates from the web client's asset host.
type AssetSource struct {
	fetcher AssetFetcher
}

func NewAssetSource(fetcher AssetFetcher) *AssetSource {
	return &AssetSource{fetcher: fetcher}
}

func (s *AssetSource) Load(ctx context.Context, ref TemplateRef) ([]byte, error) {
	if !ref.valid() {
		return nil, fmt.Errorf("%w: unknown template %q", domain.ErrTemplateFetchFailed, ref)
	}
	data, err := s.fetcher.FetchAsset(ctx, ref.AssetName())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTemplateFetchFailed, err)
	}
	return data, nil
}

// DirSource reads templates from a local directory.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) Load(ctx context.Context, ref TemplateRef) ([]byte, error) {
	if !ref.valid() {
		return nil, fmt.Errorf("%w: unknown template %q", domain.ErrTemplateFetchFailed, ref)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, ref.AssetName()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTemplateFetchFailed, err)
	}
	return data, nil
}

// CachedSource keeps successfully loaded templates in memory.
type CachedSource struct {
	next TemplateSource

	mu    sync.Mutex
	cache map[TemplateRef][]byte
}

func NewCachedSource(next TemplateSource) *CachedSource {
	return &CachedSource{next: next, cache: make(map[TemplateRef][]byte)}
}

func (s *CachedSource) Load(ctx context.Context, ref TemplateRef) ([]byte, error) {
	s.mu.Lock()
	data, ok := s.cache[ref]
	s.mu.Unlock()
	if ok {
		logger.Debug("Template cache hit", "template", string(ref))
		return data, nil
	}

	data, err := s.next.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[ref] = data
	s.mu.Unlock()
	return data, nil
}
