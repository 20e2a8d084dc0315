// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	mail "gopkg.in/gomail.v2"
)

var (
	alertMailUsr  = os.Getenv("MAIL_USERNAME")
	alertMailPwd  = os.Getenv("MAIL_PASSWORD")
	alertMailSrv  = os.Getenv("MAIL_SERVER")
	alertMailPort = atoi(os.Getenv("MAIL_PORT"))
	alertMailTgts = targets(os.Getenv("MAIL_TGTS"))
)

type mailer interface {
	DialAndSend(msgs ...*mail.Message) error
}

var newMailer = func(host string, port int, usr, pwd string) mailer {
	return mail.NewDialer(host, port, usr, pwd)
}

// alertMail notifies the shift crew that programming the devices failed.
func alertMail(fname string, uris []string, failure error) error {
	if alertMailUsr == "" || alertMailPwd == "" ||
		alertMailSrv == "" || alertMailPort == 0 ||
		len(alertMailTgts) == 0 {
		return fmt.Errorf("could not send mail alert: missing credentials")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", alertMailUsr)
	msg.SetHeader("Bcc", alertMailTgts...)
	msg.SetHeader("Subject", fmt.Sprintf("[ral-load] register alert: %q", fname))
	msg.SetBody("text/plain", fmt.Sprintf("regs:    %q\ndevices: %s\nerror:\n%v\n",
		fname, strings.Join(uris, ", "), failure,
	))

	dial := newMailer(alertMailSrv, alertMailPort, alertMailUsr, alertMailPwd)
	err := dial.DialAndSend(msg)
	if err != nil {
		return fmt.Errorf("could not send mail alert: %w", err)
	}
	return nil
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func targets(s string) []string {
	var o []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			o = append(o, v)
		}
	}
	return o
}
