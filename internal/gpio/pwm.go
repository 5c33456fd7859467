package gpio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// SysfsRoot is where the kernel exposes PWM controllers.
const SysfsRoot = "/sys/class/pwm"

// PWM drives one channel of a sysfs PWM controller.
type PWM struct {
	dir      string
	period   int64
	duty     int64
	exported bool
}

// OpenPWM exports channel on pwmchip<chip> under root and configures the
// period (ns). The output starts enabled at 0% duty.
func OpenPWM(root string, chip, channel int, periodNs int64) (*PWM, error) {
	if periodNs <= 0 {
		return nil, fmt.Errorf("pwm period must be positive, got %d", periodNs)
	}
	chipDir := filepath.Join(root, fmt.Sprintf("pwmchip%d", chip))
	p := &PWM{dir: filepath.Join(chipDir, fmt.Sprintf("pwm%d", channel))}

	if _, err := os.Stat(p.dir); errors.Is(err, os.ErrNotExist) {
		if err := writeSysfs(filepath.Join(chipDir, "export"), strconv.Itoa(channel)); err != nil {
			return nil, fmt.Errorf("export pwm%d on pwmchip%d: %w", channel, chip, err)
		}
		p.exported = true
		// udev may take a moment to fix permissions on the new directory.
		if err := waitForDir(p.dir, time.Second); err != nil {
			return nil, err
		}
	}

	// Duty must never exceed period, so zero it before changing the period.
	if err := p.write("duty_cycle", 0); err != nil {
		return nil, err
	}
	if err := p.write("period", periodNs); err != nil {
		return nil, err
	}
	p.period = periodNs
	if err := p.write("enable", 1); err != nil {
		return nil, err
	}
	return p, nil
}

// SetFraction sets the duty cycle as a fraction of the period in [0, 1].
func (p *PWM) SetFraction(f float64) error {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	duty := int64(f * float64(p.period))
	if duty == p.duty {
		return nil
	}
	if err := p.write("duty_cycle", duty); err != nil {
		return err
	}
	p.duty = duty
	return nil
}

// Duty returns the last duty cycle written, in nanoseconds.
func (p *PWM) Duty() int64 {
	return p.duty
}

// Close zeroes and disables the output and unexports it if OpenPWM exported it.
func (p *PWM) Close() error {
	var errs []error
	if err := p.write("duty_cycle", 0); err != nil {
		errs = append(errs, err)
	}
	if err := p.write("enable", 0); err != nil {
		errs = append(errs, err)
	}
	if p.exported {
		chipDir := filepath.Dir(p.dir)
		channel := filepath.Base(p.dir)[len("pwm"):]
		if err := writeSysfs(filepath.Join(chipDir, "unexport"), channel); err != nil {
			errs = append(errs, fmt.Errorf("unexport: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close pwm: %v", errs)
	}
	return nil
}

func (p *PWM) write(attr string, v int64) error {
	if err := writeSysfs(filepath.Join(p.dir, attr), strconv.FormatInt(v, 10)); err != nil {
		return fmt.Errorf("write pwm %s: %w", attr, err)
	}
	return nil
}

func writeSysfs(path, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}

func waitForDir(dir string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(filepath.Join(dir, "enable")); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pwm channel %s did not appear", dir)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
