/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"strings"
	"time"
)

const nickservSource = "NickServ"

// dispatchNickserv routes one NICKSERV/NS subcommand (§4.L).
func dispatchNickserv(conn *Conn, user *User, sub string, args []string) {
	switch sub {
	case "REGISTER":
		nickservRegister(conn, user, args)
	case "DROP":
		nickservDrop(conn, user, args)
	case "EMAIL":
		nickservField(conn, user, args, "email")
	case "URL":
		nickservField(conn, user, args, "url")
	case "VHOST":
		nickservVHost(conn, user, args)
	case "NOACCESS":
		nickservBoolField(conn, user, args, "noaccess")
	case "NOOP":
		nickservBoolField(conn, user, args, "noop")
	case "SHOWMAIL":
		nickservBoolField(conn, user, args, "showmail")
	case "PASSWORD":
		nickservPassword(conn, user, args)
	case "IDENTIFY":
		nickservIdentify(conn, user, args)
	case "INFO":
		nickservInfo(conn, user, args)
	case "HELP":
		nickservHelp(conn, args)
	default:
		serviceNotice(conn, nickservSource, "Unknown command "+sub+". "+helpTopics[CmdNickserv])
	}
}

func nickservStore(conn *Conn) PersistenceStore {
	return conn.server.Store
}

func nickservRegister(conn *Conn, user *User, args []string) {
	store := nickservStore(conn)
	if store == nil {
		serviceNotice(conn, nickservSource, "Services are not available.")
		return
	}
	if len(args) < 1 {
		serviceNotice(conn, nickservSource, "Syntax: REGISTER <password>")
		return
	}

	password := args[0]
	if len(password) < 6 || len(password) > 32 || !isPrintableASCII(password) {
		serviceNotice(conn, nickservSource, ErrBadPassword.Error())
		return
	}

	hash, err := HashPassword(password)
	if err != nil {
		serviceNotice(conn, nickservSource, "Registration failed, try again later.")
		return
	}

	nick := user.Nick()
	if _, found, _ := store.GetNick(nick); found {
		serviceNotice(conn, nickservSource, "That nick is already registered.")
		return
	}

	record := &NickRecord{
		Nick:         nick,
		PasswordHash: hash,
		Account:      nick,
		RegisteredAt: time.Now(),
	}
	if err := store.PutNick(record); err != nil {
		serviceNotice(conn, nickservSource, "Registration failed, try again later.")
		return
	}

	user.SetIdentified(nick)
	serviceNotice(conn, nickservSource, "Nick "+nick+" registered.")
}

func nickservDrop(conn *Conn, user *User, args []string) {
	store := nickservStore(conn)
	if store == nil {
		serviceNotice(conn, nickservSource, "Services are not available.")
		return
	}
	if len(args) < 1 {
		serviceNotice(conn, nickservSource, "Syntax: DROP <password|nick>")
		return
	}

	isOper := user.Modes().IsLocalOper()

	var target string
	if isOper {
		target = args[0]
	} else {
		target = user.Nick()
		record, found, err := store.GetNick(target)
		if err != nil || !found {
			serviceNotice(conn, nickservSource, ErrTargetNotRegistered.Error())
			return
		}
		if !VerifyPassword(args[0], record.PasswordHash) {
			serviceNotice(conn, nickservSource, ErrPasswdMismatch.Error())
			return
		}
	}

	if err := store.DeleteNick(target); err != nil {
		serviceNotice(conn, nickservSource, "Drop failed, try again later.")
		return
	}
	serviceNotice(conn, nickservSource, "Nick "+target+" has been dropped.")
}

func nickservField(conn *Conn, user *User, args []string, field string) {
	store := nickservStore(conn)
	if store == nil {
		serviceNotice(conn, nickservSource, "Services are not available.")
		return
	}
	if len(args) < 1 {
		serviceNotice(conn, nickservSource, "Syntax: "+strings.ToUpper(field)+" <value|OFF>")
		return
	}

	record, found, err := store.GetNick(user.Nick())
	if err != nil || !found {
		serviceNotice(conn, nickservSource, ErrTargetNotRegistered.Error())
		return
	}
	if !user.Identified() || user.Account() != record.Account {
		serviceNotice(conn, nickservSource, ErrNotNickOwner.Error())
		return
	}

	value := args[0]
	if strings.EqualFold(value, "OFF") {
		value = ""
	}

	switch field {
	case "email":
		if value != "" && !isValidEmail(value) {
			serviceNotice(conn, nickservSource, ErrBadEmail.Error())
			return
		}
		record.Email = value
	case "url":
		if value != "" && !isValidURL(value) {
			serviceNotice(conn, nickservSource, ErrBadURL.Error())
			return
		}
		record.URL = value
	}

	if err := store.PutNick(record); err != nil {
		serviceNotice(conn, nickservSource, "Update failed, try again later.")
		return
	}
	serviceNotice(conn, nickservSource, strings.ToUpper(field)+" updated.")
}

func nickservVHost(conn *Conn, user *User, args []string) {
	store := nickservStore(conn)
	if store == nil {
		serviceNotice(conn, nickservSource, "Services are not available.")
		return
	}
	if len(args) < 1 {
		serviceNotice(conn, nickservSource, "Syntax: VHOST <host|OFF>")
		return
	}

	record, found, err := store.GetNick(user.Nick())
	if err != nil || !found {
		serviceNotice(conn, nickservSource, ErrTargetNotRegistered.Error())
		return
	}
	if !user.Identified() || user.Account() != record.Account {
		serviceNotice(conn, nickservSource, ErrNotNickOwner.Error())
		return
	}

	now := time.Now()
	if !record.VHostSetAt.IsZero() && now.Sub(record.VHostSetAt) < VHostChangeCooldown {
		serviceNotice(conn, nickservSource, ErrVHostRateLimited.Error())
		return
	}

	value := args[0]
	if strings.EqualFold(value, "OFF") {
		value = ""
	}
	record.VHost = value
	record.VHostSetAt = now

	if err := store.PutNick(record); err != nil {
		serviceNotice(conn, nickservSource, "Update failed, try again later.")
		return
	}

	modes := user.Modes()
	if value != "" {
		user.SetCloak(value)
		modes.Cloaked = true
	} else {
		user.SetCloak(user.Hostname())
		modes.Cloaked = false
	}
	user.SetModes(modes)
	serviceNotice(conn, nickservSource, "VHOST updated.")
}

func nickservBoolField(conn *Conn, user *User, args []string, field string) {
	store := nickservStore(conn)
	if store == nil {
		serviceNotice(conn, nickservSource, "Services are not available.")
		return
	}
	if len(args) < 1 {
		serviceNotice(conn, nickservSource, "Syntax: "+strings.ToUpper(field)+" on|off")
		return
	}

	record, found, err := store.GetNick(user.Nick())
	if err != nil || !found {
		serviceNotice(conn, nickservSource, ErrTargetNotRegistered.Error())
		return
	}
	if !user.Identified() || user.Account() != record.Account {
		serviceNotice(conn, nickservSource, ErrNotNickOwner.Error())
		return
	}

	on := strings.EqualFold(args[0], "on")
	if !on && !strings.EqualFold(args[0], "off") {
		serviceNotice(conn, nickservSource, "Syntax: "+strings.ToUpper(field)+" on|off")
		return
	}

	switch field {
	case "noaccess":
		record.NoAccess = on
	case "noop":
		record.NoOp = on
	case "showmail":
		record.ShowMail = on
	}

	if err := store.PutNick(record); err != nil {
		serviceNotice(conn, nickservSource, "Update failed, try again later.")
		return
	}
	serviceNotice(conn, nickservSource, strings.ToUpper(field)+" is now "+onOff(on)+".")
}

func nickservPassword(conn *Conn, user *User, args []string) {
	store := nickservStore(conn)
	if store == nil {
		serviceNotice(conn, nickservSource, "Services are not available.")
		return
	}
	if len(args) < 1 {
		serviceNotice(conn, nickservSource, "Syntax: PASSWORD <new password>")
		return
	}

	newPassword := args[0]
	if len(newPassword) < 6 || len(newPassword) > 32 || !isPrintableASCII(newPassword) {
		serviceNotice(conn, nickservSource, ErrBadPassword.Error())
		return
	}

	record, found, err := store.GetNick(user.Nick())
	if err != nil || !found {
		serviceNotice(conn, nickservSource, ErrTargetNotRegistered.Error())
		return
	}
	if !user.Identified() || user.Account() != record.Account {
		serviceNotice(conn, nickservSource, ErrNotNickOwner.Error())
		return
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		serviceNotice(conn, nickservSource, "Update failed, try again later.")
		return
	}
	record.PasswordHash = hash

	if err := store.PutNick(record); err != nil {
		serviceNotice(conn, nickservSource, "Update failed, try again later.")
		return
	}
	serviceNotice(conn, nickservSource, "Password updated.")
}

// nickservIdentify implements §4.L IDENTIFY: verify the password, and if
// another connection currently holds the target nick, kill it and rename
// the identifying connection onto that nick, fully mirroring the NICK
// rename protocol (NICK broadcast to joined channels, nick-history insert).
func nickservIdentify(conn *Conn, user *User, args []string) {
	store := nickservStore(conn)
	if store == nil {
		serviceNotice(conn, nickservSource, "Services are not available.")
		return
	}
	if len(args) < 2 {
		serviceNotice(conn, nickservSource, "Syntax: IDENTIFY <nick> <password>")
		return
	}

	targetNick, password := args[0], args[1]
	record, found, err := store.GetNick(targetNick)
	if err != nil || !found {
		serviceNotice(conn, nickservSource, ErrTargetNotRegistered.Error())
		return
	}
	if !VerifyPassword(password, record.PasswordHash) {
		serviceNotice(conn, nickservSource, ErrPasswdMismatch.Error())
		return
	}

	if incumbent, ok := conn.server.State.LookupUser(targetNick); ok && incumbent != user {
		if incumbentConn := incumbent.Conn(); incumbentConn != nil {
			incumbentConn.Kill("NickServ", "NickServ: Nick claimed")
		}
	}

	oldNick := user.Nick()
	if CanonicalName(oldNick) != CanonicalName(targetNick) {
		if err := conn.server.State.RenameUser(user, oldNick, targetNick, time.Now().Unix()); err != nil {
			serviceNotice(conn, nickservSource, "Could not claim that nick right now, try again.")
			return
		}

		renameMsg := NewPooledMessage()
		renameMsg.Source = user.Source()
		user.SetNick(targetNick)
		renameMsg.Command = CmdNick
		renameMsg.WithTrailing(targetNick)

		seen := make(map[string]bool)
		for _, chanName := range user.Channels() {
			if seen[chanName] {
				continue
			}
			seen[chanName] = true
			if channel, ok := conn.server.State.LookupChannel(chanName); ok {
				channel.Send(renameMsg, "")
			}
		}
		// Not recycled: fanned out to every shared channel's write queues.
	}

	user.SetIdentified(record.Account)
	if record.VHost != "" {
		user.SetCloak(record.VHost)
		modes := user.Modes()
		modes.Cloaked = true
		user.SetModes(modes)
	}

	serviceNotice(conn, nickservSource, "You are now identified for "+targetNick+".")
}

func nickservInfo(conn *Conn, user *User, args []string) {
	store := nickservStore(conn)
	if store == nil {
		serviceNotice(conn, nickservSource, "Services are not available.")
		return
	}

	nick := user.Nick()
	if len(args) > 0 {
		nick = args[0]
	}

	record, found, err := store.GetNick(nick)
	if err != nil || !found {
		serviceNotice(conn, nickservSource, ErrTargetNotRegistered.Error())
		return
	}

	serviceNotice(conn, nickservSource, nick+" is registered.")
	days := daysSince(record.RegisteredAt.Unix(), time.Now().Unix())
	serviceNotice(conn, nickservSource, "Registered: "+itoa(int(days))+" day(s) ago.")
	if record.VHost != "" {
		serviceNotice(conn, nickservSource, "VHost: "+record.VHost)
	}
	if record.ShowMail && record.Email != "" {
		serviceNotice(conn, nickservSource, "Email: "+record.Email)
	}
	if record.URL != "" {
		serviceNotice(conn, nickservSource, "URL: "+record.URL)
	}
	serviceNotice(conn, nickservSource, "NoAccess: "+onOff(record.NoAccess)+", NoOp: "+onOff(record.NoOp)+", ShowMail: "+onOff(record.ShowMail))
}

func nickservHelp(conn *Conn, args []string) {
	if len(args) > 0 {
		serviceNotice(conn, nickservSource, strings.ToUpper(args[0])+": see NickServ subcommand documentation.")
		return
	}
	serviceNotice(conn, nickservSource, "NickServ subcommands: REGISTER, DROP, EMAIL, URL, VHOST, NOACCESS, NOOP, SHOWMAIL, PASSWORD, IDENTIFY, INFO, HELP")
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7E {
			return false
		}
	}
	return true
}

func isValidEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

func isValidURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
