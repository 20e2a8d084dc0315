// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regmap

type fakeSource struct {
	kind  Kind
	name  string
	addr  uint64
	size  uint64
	ints  map[Prop]uint64
	bools map[Prop]bool
	strs  map[Prop]string
	kids  []Source
}

func (src *fakeSource) Kind() Kind      { return src.kind }
func (src *fakeSource) Name() string    { return src.name }
func (src *fakeSource) Size() uint64    { return src.size }
func (src *fakeSource) Address() uint64 { return src.addr }

func (src *fakeSource) Int(key Prop) (uint64, bool) {
	v, ok := src.ints[key]
	return v, ok
}

func (src *fakeSource) Bool(key Prop) bool { return src.bools[key] }

func (src *fakeSource) Str(key Prop) (string, bool) {
	v, ok := src.strs[key]
	return v, ok
}

func (src *fakeSource) Children() []Source { return src.kids }

func fakeAddrMap(name string, size uint64, kids ...Source) *fakeSource {
	return &fakeSource{kind: KindAddrMap, name: name, size: size, kids: kids}
}

func fakeRegFile(name string, addr uint64, kids ...Source) *fakeSource {
	return &fakeSource{kind: KindRegFile, name: name, addr: addr, kids: kids}
}

func fakeReg(name string, addr uint64, regw, accw int, kids ...Source) *fakeSource {
	return &fakeSource{
		kind: KindReg,
		name: name,
		addr: addr,
		size: uint64(regw / 8),
		ints: map[Prop]uint64{
			PropRegWidth:    uint64(regw),
			PropAccessWidth: uint64(accw),
		},
		kids: kids,
	}
}

func fakeField(name string, msb, lsb int) *fakeSource {
	return &fakeSource{
		kind: KindField,
		name: name,
		ints: map[Prop]uint64{
			PropMSB: uint64(msb),
			PropLSB: uint64(lsb),
		},
		bools: map[Prop]bool{
			PropSwReadable: true,
			PropSwWritable: true,
			PropHwReadable: true,
		},
		strs: map[Prop]string{},
	}
}

func (src *fakeSource) withReset(v uint64) *fakeSource {
	src.ints[PropReset] = v
	return src
}

func (src *fakeSource) withProp(key Prop, v interface{}) *fakeSource {
	switch v := v.(type) {
	case bool:
		src.bools[key] = v
	case string:
		src.strs[key] = v
	case int:
		src.ints[key] = uint64(v)
	}
	return src
}

// testMap mirrors the register map used by the regression tests of the
// RTL exporter.
func testMap() *fakeSource {
	return fakeAddrMap("test_reg", 0x40,
		fakeReg("r1", 0x00, 8, 8,
			fakeField("f1", 3, 0).withReset(0x5),
			fakeField("f2", 7, 4),
		),
		fakeReg("r4", 0x08, 32, 16,
			fakeField("f1", 15, 0),
			fakeField("f2", 31, 16).withReset(0xcafe),
		),
		fakeReg("r5", 0x0c, 32, 8,
			fakeField("f1", 7, 0),
			fakeField("f2", 15, 8),
			fakeField("f3", 23, 16),
			fakeField("f4", 31, 24),
		),
		fakeReg("r8", 0x10, 16, 16,
			fakeField("f1", 3, 0),
			fakeField("f2", 7, 4),
		),
		fakeRegFile("rf", 0x20,
			fakeReg("r9", 0x20, 32, 32,
				fakeField("en", 0, 0).withProp(PropSwAcc, true),
				fakeField("cnt", 31, 16).withProp(PropOnRead, "rclr").withProp(PropSwMod, true),
			),
			fakeRegFile("inner", 0x24,
				fakeReg("r10", 0x24, 64, 16,
					fakeField("lo", 11, 4),
					fakeField("hi", 63, 48),
				),
			),
		),
	)
}
