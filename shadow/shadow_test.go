package shadow

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tanayagrawal/protoshade/wire"
)

type Address struct {
	City string
	Zip  string `proto:"postal_code"`
}

type Celsius float64

func (c Celsius) ToWire() interface{} { return float64(c) }

func (c *Celsius) FromWire(value interface{}) error {
	f, ok := value.(float64)
	if !ok {
		return errors.New("expected float64")
	}
	*c = Celsius(f)
	return nil
}

type Profile struct {
	UserID   uint64
	Name     string
	Tags     []uint32
	Scores   map[string]int64
	Address  *Address
	Temp     Celsius
	Contact  wire.Variant
	internal string // unexported, never projected
}

func TestFromSunNames(t *testing.T) {
	view, err := FromSun(&Profile{UserID: 7, Name: "ada"})
	if err != nil {
		t.Fatal(err)
	}
	if view["user_id"] != uint64(7) {
		t.Errorf("user_id = %v, want 7", view["user_id"])
	}
	if view["name"] != "ada" {
		t.Errorf("name = %v, want ada", view["name"])
	}
	if _, ok := view["internal"]; ok {
		t.Error("unexported field leaked into the view")
	}
}

func TestProtoTagOverridesName(t *testing.T) {
	view, err := FromSun(Address{City: "Pune", Zip: "411001"})
	if err != nil {
		t.Fatal(err)
	}
	if view["postal_code"] != "411001" {
		t.Errorf("postal_code = %v, want 411001", view["postal_code"])
	}
	if _, ok := view["zip"]; ok {
		t.Error("tagged field projected under its Go name")
	}
}

func TestNilPointerIsAbsent(t *testing.T) {
	view, err := FromSun(&Profile{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := view["address"]; ok {
		t.Error("nil pointer field present in view")
	}
	// zero scalars stay in the view; the encoder elides them
	if view["user_id"] != uint64(0) {
		t.Errorf("user_id = %v, want 0", view["user_id"])
	}
}

func TestWireableAppliedEagerly(t *testing.T) {
	view, err := FromSun(&Profile{Temp: Celsius(21.5)})
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := view["temp"].(float64); !ok || v != 21.5 {
		t.Errorf("temp = %v (%T), want 21.5 float64", view["temp"], view["temp"])
	}
}

func TestNestedStructProjected(t *testing.T) {
	view, err := FromSun(&Profile{Address: &Address{City: "Pune"}})
	if err != nil {
		t.Fatal(err)
	}
	address, ok := view["address"].(map[string]interface{})
	if !ok {
		t.Fatalf("address = %T, want map", view["address"])
	}
	if address["city"] != "Pune" {
		t.Errorf("city = %v, want Pune", address["city"])
	}
}

func TestToSunRestoresStruct(t *testing.T) {
	view := map[string]interface{}{
		"user_id": uint64(11),
		"name":    "grace",
		"tags":    []interface{}{uint32(1), uint32(2)},
		"scores":  map[interface{}]interface{}{"math": int64(99)},
		"address": map[string]interface{}{"city": "Delhi", "postal_code": "110001"},
		"temp":    float64(36.6),
		"contact": wire.Variant{Case: "email", Value: "g@example.com"},
	}

	var p Profile
	if err := ToSun(view, &p); err != nil {
		t.Fatal(err)
	}

	want := Profile{
		UserID:  11,
		Name:    "grace",
		Tags:    []uint32{1, 2},
		Scores:  map[string]int64{"math": 99},
		Address: &Address{City: "Delhi", Zip: "110001"},
		Temp:    Celsius(36.6),
		Contact: wire.Variant{Case: "email", Value: "g@example.com"},
	}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("restored %+v, want %+v", p, want)
	}
}

type checksummed struct {
	A, B  int32
	Total int32 `proto:"-"`
}

func (c *checksummed) PostDecode() error {
	c.Total = c.A + c.B
	if c.Total < 0 {
		return errors.New("negative total")
	}
	return nil
}

func TestPostDecodeHookRuns(t *testing.T) {
	var c checksummed
	if err := ToSun(map[string]interface{}{"a": int32(2), "b": int32(3)}, &c); err != nil {
		t.Fatal(err)
	}
	if c.Total != 5 {
		t.Errorf("Total = %d, want 5 (derived by hook)", c.Total)
	}
}

func TestPostDecodeHookErrorAborts(t *testing.T) {
	var c checksummed
	err := ToSun(map[string]interface{}{"a": int32(-10), "b": int32(3)}, &c)
	if err == nil {
		t.Fatal("expected post-decode error")
	}
}

func TestSkippedFieldNeverProjected(t *testing.T) {
	view, err := FromSun(&checksummed{A: 1, B: 2, Total: 3})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := view["total"]; ok {
		t.Error(`proto:"-" field present in view`)
	}
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":      "name",
		"UserID":    "user_id",
		"HTTPCode":  "http_code",
		"CreatedAt": "created_at",
		"ID":        "id",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
