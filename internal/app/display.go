package app

import (
	"fmt"
	"image"
	"slices"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const ssd1306DefaultAddr = 0x3C

// retargetBus redirects transactions for the SSD1306 default address to
// the configured one.
type retargetBus struct {
	i2c.Bus
	addr uint16
}

func (b retargetBus) Tx(addr uint16, w, r []byte) error {
	if addr == ssd1306DefaultAddr {
		addr = b.addr
	}
	return b.Bus.Tx(addr, w, r)
}

// oledDisplay shows the sensor status on a 128x64 SSD1306.
type oledDisplay struct {
	dev  *ssd1306.Dev
	last []string
}

func openDisplay(bus i2c.Bus, addr uint16) (*oledDisplay, error) {
	if addr != ssd1306DefaultAddr {
		bus = retargetBus{Bus: bus, addr: addr}
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize display at 0x%02X: %w", addr, err)
	}
	d := &oledDisplay{dev: dev}
	if err := d.draw([]string{"BME280", "Env Monitor", "Starting..."}); err != nil {
		return nil, err
	}
	return d, nil
}

// Show redraws only when the text changes.
func (d *oledDisplay) Show(snap Snapshot) error {
	lines := statusLines(snap)
	if slices.Equal(lines, d.last) {
		return nil
	}
	if err := d.draw(lines); err != nil {
		return err
	}
	d.last = lines
	return nil
}

func (d *oledDisplay) draw(lines []string) error {
	return d.dev.Draw(d.dev.Bounds(), renderLines(lines), image.Point{})
}

// statusLines formats a snapshot into at most four display lines.
func statusLines(snap Snapshot) []string {
	st := snap.Status
	if st.OK {
		return []string{
			fmt.Sprintf("T: %6.2f C", st.Reading.Temperature),
			fmt.Sprintf("H: %6.2f %%", st.Reading.Humidity),
			fmt.Sprintf("P: %7.2f hPa", st.Reading.Pressure),
			strings.ToUpper(snap.State[:1]) + snap.State[1:],
		}
	}
	return []string{
		"BME280",
		"Error:",
		string(st.Error),
		fmt.Sprintf("Fails: %d", st.FailCount),
	}
}

func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, l := range lines {
		if i == 4 {
			break
		}
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(l)
	}
	return img
}
