package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"vcar-client/internal/domain"
	"vcar-client/internal/utils"
)

const dateLayout = "02/01/2006"

// IssuedDoc is an identity document with its issue date and place.
type IssuedDoc struct {
	Number      string
	IssuedOn    utils.Date
	IssuedPlace string
}

// ContractFields holds the values of the rental contract template. Party A
// is the lessor, party B the lessee.
type ContractFields struct {
	Location *time.Location

	SignedOn time.Time
	Place    string

	LessorName    string
	LessorID      IssuedDoc
	LessorAddress string
	LessorPhone   string

	LesseeName          string
	LesseeID            IssuedDoc
	LesseePassport      IssuedDoc
	LesseeDriverLicense IssuedDoc
	LesseeAddress       string
	LesseePhone         string

	LicensePlate       string
	Brand              string
	ManufacturingYear  int
	Color              string
	RegistrationNumber string
	RegistrationDate   string
	RegistrationPlace  string
	OwnerName          string

	PricePerDay        int64
	MileageLimitPerDay int64
	ExtraMileageCharge int64
	RentalStart        time.Time
	RentalEnd          time.Time
	ExtraHourlyCharge  int64
	TotalValue         int64
	HandoverLocation   string

	OwnerSignature  string
	LesseeSignature string
}

// NewContractFields maps a contract and the lessee's profile onto the
// contract template. lessee may be nil, in which case the contract's lessee
// snapshot is used.
func NewContractFields(c *domain.Contract, lessee *domain.User, loc *time.Location) ContractFields {
	f := ContractFields{
		Location: loc,

		SignedOn: c.CreatedAt.Time,
		Place:    c.HandOverLocation,

		LessorName:    c.LessorName,
		LessorID:      IssuedDoc{Number: c.LessorIdentityNumber},
		LessorAddress: c.LessorContactAddress,
		LessorPhone:   c.LessorPhoneNumber,

		LesseeName: c.LesseeName,

		LicensePlate:       c.VehicleLicensePlate,
		Brand:              strings.TrimSpace(c.VehicleBrand + " " + c.VehicleName),
		ManufacturingYear:  c.VehicleManufacturingYear,
		Color:              c.VehicleColor,
		RegistrationNumber: c.VehicleRegistrationNumber,
		RegistrationDate:   c.VehicleRegistrationDate,
		RegistrationPlace:  c.VehicleRegistrationLocation,
		OwnerName:          c.LessorName,

		PricePerDay:        c.RentalPricePerDay,
		MileageLimitPerDay: c.MileageLimitPerDay,
		ExtraMileageCharge: c.ExtraMileageCharge,
		RentalStart:        c.RentalStartDate.Time,
		RentalEnd:          c.RentalEndDate.Time,
		ExtraHourlyCharge:  c.ExtraHourlyCharge,
		TotalValue:         c.TotalRentalValue,
		HandoverLocation:   c.HandOverLocation,

		OwnerSignature:  c.LessorName,
		LesseeSignature: c.LesseeName,
	}

	if lessee != nil {
		if lessee.DisplayName != "" {
			f.LesseeName = lessee.DisplayName
			f.LesseeSignature = lessee.DisplayName
		}
		f.LesseePhone = lessee.PhoneNumber
		if ci := lessee.CitizenIdentification; ci != nil {
			f.LesseeID = IssuedDoc{Number: ci.Number, IssuedPlace: ci.IssuedLocation}
			if d, err := utils.ParseDate(ci.IssuedDate); err == nil {
				f.LesseeID.IssuedOn = d
			}
			f.LesseeAddress = ci.ContactAddress
			if f.LesseeAddress == "" {
				f.LesseeAddress = ci.PermanentAddress
			}
		}
		if cl := lessee.CarLicense; cl != nil {
			f.LesseeDriverLicense = IssuedDoc{Number: cl.ID}
		}
	}
	return f
}

func (f ContractFields) Placeholders() map[string]string {
	loc := f.Location
	m := map[string]string{
		"Day":     day(f.SignedOn, loc),
		"Month":   month(f.SignedOn, loc),
		"Year":    year(f.SignedOn, loc),
		"DiaDiem": f.Place,

		"TenBenA":       f.LessorName,
		"CMNDBenA":      f.LessorID.Number,
		"DiaChiBenA":    f.LessorAddress,
		"DienThoaiBenA": f.LessorPhone,

		"TenBenB":       f.LesseeName,
		"CMNDBenB":      f.LesseeID.Number,
		"PassportBenB":  f.LesseePassport.Number,
		"GPLXBenB":      f.LesseeDriverLicense.Number,
		"DiaChiBenB":    f.LesseeAddress,
		"DienThoaiBenB": f.LesseePhone,

		"BienSoXe":      f.LicensePlate,
		"NhanHieu":      f.Brand,
		"NamSanXuat":    count(f.ManufacturingYear),
		"MauXe":         f.Color,
		"SoDKXe":        f.RegistrationNumber,
		"NgayCapGiayDK": f.RegistrationDate,
		"NoiCapGiayDK":  f.RegistrationPlace,
		"TenChuXe":      f.OwnerName,

		"DonGiaThue":        money(f.PricePerDay),
		"GioiHanQuangDuong": money(f.MileageLimitPerDay),
		"PhiVuotQuangDuong": money(f.ExtraMileageCharge),
		"GioBDThue":         hour(f.RentalStart, loc),
		"PhutBDThue":        minute(f.RentalStart, loc),
		"NgayBDThue":        date(f.RentalStart, loc),
		"GioKTThue":         hour(f.RentalEnd, loc),
		"PhutKTThue":        minute(f.RentalEnd, loc),
		"NgayKTThue":        date(f.RentalEnd, loc),
		"PhiVuotTGThue":     money(f.ExtraHourlyCharge),
		"TongTienThue":      money(f.TotalValue),
		"DiaDiemBanGiaoXe":  f.HandoverLocation,

		"chuKyChuXe":     f.OwnerSignature,
		"chuKyKhachThue": f.LesseeSignature,
	}
	issued(m, "A1", f.LessorID)
	issued(m, "B1", f.LesseeID)
	issued(m, "B2", f.LesseePassport)
	issued(m, "B3", f.LesseeDriverLicense)
	return m
}

// HandoverFields holds the values of the vehicle handover template: the
// pickup leg and, once returned, the return leg.
type HandoverFields struct {
	Location *time.Location

	HandoverDate time.Time
	Place        string
	LessorName   string
	LesseeName   string

	CarLabel        string
	CarType         string
	CarPaint        string
	CarYear         int
	CarLicensePlate string
	CarSeat         int

	HandoverHour    string
	ConditionNormal bool
	Damaged         bool
	Odometer        int
	Fuel            int
	PersonalItems   string
	Collateral      string

	ReturnDate           time.Time
	ReturnHour           string
	ReturnMatchesInitial bool
	ReturnDamaged        bool
	ReturnOdometer       int
	ReturnFuel           int
	ReturnPersonalItems  string
}

// NewHandoverFields maps a handover record onto the handover template. c may
// be nil; it only contributes vehicle details the handover lacks.
func NewHandoverFields(h *domain.VehicleHandover, c *domain.Contract, loc *time.Location) HandoverFields {
	f := HandoverFields{
		Location: loc,

		HandoverDate: h.HandoverDate.Time,
		Place:        h.Location,
		LessorName:   h.LessorName,
		LesseeName:   h.LesseeName,

		CarLabel:        strings.TrimSpace(h.CarBrand + " " + h.CarName),
		CarPaint:        h.CarColor,
		CarYear:         h.CarManufacturingYear,
		CarLicensePlate: h.CarLicensePlate,
		CarSeat:         h.CarSeat,

		HandoverHour:    h.HandoverHour,
		ConditionNormal: h.InitialConditionNormal,
		Damaged:         len(h.Damages) > 0,
		Odometer:        h.OdometerReading,
		Fuel:            h.FuelLevel,
		PersonalItems:   h.PersonalItems,
		Collateral:      h.Collateral,

		ReturnDate:           h.ReturnDate.Time,
		ReturnHour:           h.ReturnHour,
		ReturnMatchesInitial: h.ConditionMatchesInitial,
		ReturnDamaged:        len(h.ReturnDamages) > 0,
		ReturnOdometer:       h.ReturnOdometerReading,
		ReturnFuel:           h.ReturnFuelLevel,
		ReturnPersonalItems:  h.ReturnPersonalItems,
	}

	if c != nil {
		if f.Place == "" {
			f.Place = c.HandOverLocation
		}
		if f.LessorName == "" {
			f.LessorName = c.LessorName
		}
		if f.LesseeName == "" {
			f.LesseeName = c.LesseeName
		}
		if f.CarLabel == "" {
			f.CarLabel = strings.TrimSpace(c.VehicleBrand + " " + c.VehicleName)
		}
		if f.CarPaint == "" {
			f.CarPaint = c.VehicleColor
		}
		if f.CarYear == 0 {
			f.CarYear = c.VehicleManufacturingYear
		}
		if f.CarLicensePlate == "" {
			f.CarLicensePlate = c.VehicleLicensePlate
		}
		if f.CarSeat == 0 {
			f.CarSeat = c.VehicleSeat
		}
	}
	return f
}

func (f HandoverFields) Placeholders() map[string]string {
	loc := f.Location
	returned := !f.ReturnDate.IsZero()

	m := map[string]string{
		"D":        day(f.HandoverDate, loc),
		"M":        month(f.HandoverDate, loc),
		"Y":        year(f.HandoverDate, loc),
		"Location": f.Place,
		"Lessor":   f.LessorName,
		"Lessee":   f.LesseeName,

		"CarLabel":           f.CarLabel,
		"CarType":            f.CarType,
		"CarPaint":           f.CarPaint,
		"CarYearManufacture": count(f.CarYear),
		"CarLicensePlate":    f.CarLicensePlate,
		"CarSeat":            count(f.CarSeat),

		"RHour":         f.HandoverHour,
		"RDay":          day(f.HandoverDate, loc),
		"RMonth":        month(f.HandoverDate, loc),
		"RYear":         year(f.HandoverDate, loc),
		"X":             mark(f.ConditionNormal),
		"Odo":           count(f.Odometer),
		"Fuel":          count(f.Fuel),
		"PersonalItems": f.PersonalItems,
		"x1":            mark(!f.Damaged),
		"x2":            mark(f.Damaged),

		"OtherCollateral": f.Collateral,

		"LessorHandoverSign": f.LessorName,
		"LesseeHandoverSign": f.LesseeName,

		"ReHour":         f.ReturnHour,
		"ReDay":          day(f.ReturnDate, loc),
		"ReMonth":        month(f.ReturnDate, loc),
		"ReYear":         year(f.ReturnDate, loc),
		"ReOdo":          count(f.ReturnOdometer),
		"ReFuel":         count(f.ReturnFuel),
		"RePersonalItem": f.ReturnPersonalItems,
	}
	if returned {
		m["x3"] = mark(f.ReturnMatchesInitial)
		m["x4"] = mark(f.ReturnDamaged)
		m["LessorReturnSign"] = f.LessorName
		m["LesseeReturnSign"] = f.LesseeName
	}
	return m
}

// Zero dates and numbers render as "" so an unset value never shows up as
// "0" or a 1970 date.

func in(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

func day(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return strconv.Itoa(in(t, loc).Day())
}

func month(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return strconv.Itoa(int(in(t, loc).Month()))
}

func year(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return strconv.Itoa(in(t, loc).Year())
}

func hour(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return strconv.Itoa(in(t, loc).Hour())
}

func minute(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%02d", in(t, loc).Minute())
}

func date(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return in(t, loc).Format(dateLayout)
}

func money(v int64) string {
	if v == 0 {
		return ""
	}
	return utils.FormatMoney(v)
}

func count(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func mark(b bool) string {
	if b {
		return "X"
	}
	return ""
}

func issued(m map[string]string, prefix string, d IssuedDoc) {
	m[prefix+"_D"], m[prefix+"_M"], m[prefix+"_Y"] = "", "", ""
	if d.IssuedOn != (utils.Date{}) {
		m[prefix+"_D"] = fmt.Sprintf("%02d", d.IssuedOn.Day)
		m[prefix+"_M"] = fmt.Sprintf("%02d", d.IssuedOn.Month)
		m[prefix+"_Y"] = strconv.Itoa(d.IssuedOn.Year)
	}
	m[prefix+"_Z"] = d.IssuedPlace
}
