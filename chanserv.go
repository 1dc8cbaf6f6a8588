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

const chanservSource = "ChanServ"

// mlockAllowedLetters are the channel-mode letters MLOCK may pin (§4.L).
const mlockAllowedLetters = "ntklmiOr"

// dispatchChanserv routes one CHANSERV/CS subcommand (§4.L).
func dispatchChanserv(conn *Conn, user *User, sub string, args []string) {
	switch sub {
	case "REGISTER":
		chanservRegister(conn, user, args)
	case "DROP":
		chanservDrop(conn, user, args)
	case "INFO":
		chanservInfo(conn, user, args)
	case "VOP":
		chanservAccess(conn, user, args, AccessVop)
	case "HOP":
		chanservAccess(conn, user, args, AccessHop)
	case "AOP":
		chanservAccess(conn, user, args, AccessAop)
	case "SOP":
		chanservAccess(conn, user, args, AccessSop)
	case "TRANSFER":
		chanservTransfer(conn, user, args)
	case "TOPIC":
		chanservTopic(conn, user, args)
	case "MLOCK":
		chanservMlock(conn, user, args)
	case "HELP":
		chanservHelp(conn, args)
	default:
		serviceNotice(conn, chanservSource, "Unknown command "+sub+". "+helpTopics[CmdChanserv])
	}
}

func chanservStore(conn *Conn) PersistenceStore {
	return conn.server.Store
}

func chanservRegister(conn *Conn, user *User, args []string) {
	store := chanservStore(conn)
	if store == nil {
		serviceNotice(conn, chanservSource, "Services are not available.")
		return
	}
	if len(args) < 1 {
		serviceNotice(conn, chanservSource, "Syntax: REGISTER <#channel>")
		return
	}

	name := args[0]
	channel, ok := conn.server.State.LookupChannel(name)
	if !ok {
		serviceNotice(conn, chanservSource, ErrNoSuchChan.Error())
		return
	}
	if _, found, _ := store.GetChannel(name); found {
		serviceNotice(conn, chanservSource, "That channel is already registered.")
		return
	}

	record := &ChannelRecord{
		Name:         CanonicalName(name),
		Founder:      user.Nick(),
		RegisteredAt: time.Now(),
	}
	if err := store.PutChannel(record); err != nil {
		serviceNotice(conn, chanservSource, "Registration failed, try again later.")
		return
	}

	modeStr, args2, err := channel.ApplyModes("+r", nil)
	if err == nil && modeStr != "" {
		broadcastChannelMode(conn, channel, user, modeStr, args2)
	}
	serviceNotice(conn, chanservSource, "Channel "+name+" registered to "+user.Nick()+".")
}

func chanservDrop(conn *Conn, user *User, args []string) {
	store := chanservStore(conn)
	if store == nil {
		serviceNotice(conn, chanservSource, "Services are not available.")
		return
	}
	if len(args) < 1 {
		serviceNotice(conn, chanservSource, "Syntax: DROP <#channel>")
		return
	}

	name := args[0]
	record, found, err := store.GetChannel(name)
	if err != nil || !found {
		serviceNotice(conn, chanservSource, ErrChanNotRegistered.Error())
		return
	}
	if !strings.EqualFold(record.Founder, user.Nick()) && !user.Modes().IsLocalOper() {
		serviceNotice(conn, chanservSource, ErrNotChanFounder.Error())
		return
	}

	if channel, ok := conn.server.State.LookupChannel(name); ok {
		modeStr, modeArgs, err := channel.ApplyModes("-r", nil)
		if err == nil && modeStr != "" {
			broadcastChannelMode(conn, channel, user, modeStr, modeArgs)
		}
	}

	if err := store.DeleteChannel(name); err != nil {
		serviceNotice(conn, chanservSource, "Drop failed, try again later.")
		return
	}
	serviceNotice(conn, chanservSource, "Channel "+name+" has been dropped.")
}

func chanservInfo(conn *Conn, user *User, args []string) {
	store := chanservStore(conn)
	if store == nil {
		serviceNotice(conn, chanservSource, "Services are not available.")
		return
	}
	if len(args) < 1 {
		serviceNotice(conn, chanservSource, "Syntax: INFO <#channel>")
		return
	}

	name := args[0]
	record, found, err := store.GetChannel(name)
	if err != nil || !found {
		serviceNotice(conn, chanservSource, ErrChanNotRegistered.Error())
		return
	}

	serviceNotice(conn, chanservSource, name+" is registered to "+record.Founder+".")
	days := daysSince(record.RegisteredAt.Unix(), time.Now().Unix())
	serviceNotice(conn, chanservSource, "Registered: "+itoa(int(days))+" day(s) ago.")

	if channel, ok := conn.server.State.LookupChannel(name); ok {
		text, setter, at := channel.Topic()
		if text != "" {
			serviceNotice(conn, chanservSource, "Topic: "+text+" (set by "+setter+" at "+time.Unix(at, 0).UTC().Format(time.RFC1123)+")")
		}
		serviceNotice(conn, chanservSource, "Modes: "+channel.Modes().String())
	}

	serviceNotice(conn, chanservSource, "Your access: "+chanservAccessLevel(record, user).String())
}

// chanservAccessLevel reports the caller's highest ChanServ access-list
// grant (SOP, then AOP, HOP, VOP), else the empty level that String below
// renders as "none". Founder status is not consulted.
func chanservAccessLevel(record *ChannelRecord, user *User) ChanAccessLevel {
	nick := CanonicalName(user.Nick())
	has := func(list []string) bool {
		for _, n := range list {
			if CanonicalName(n) == nick {
				return true
			}
		}
		return false
	}
	switch {
	case has(record.SOP):
		return AccessSop
	case has(record.AOP):
		return AccessAop
	case has(record.HOP):
		return AccessHop
	case has(record.VOP):
		return AccessVop
	default:
		return ""
	}
}

func (l ChanAccessLevel) String() string {
	if l == "" {
		return "none"
	}
	return string(l)
}

func chanservCanManageAccess(record *ChannelRecord, user *User) bool {
	if strings.EqualFold(record.Founder, user.Nick()) {
		return true
	}
	if user.Modes().IsLocalOper() {
		return true
	}
	return chanservAccessLevel(record, user) == AccessSop
}

func chanservAccess(conn *Conn, user *User, args []string, level ChanAccessLevel) {
	store := chanservStore(conn)
	if store == nil {
		serviceNotice(conn, chanservSource, "Services are not available.")
		return
	}
	if len(args) < 2 {
		serviceNotice(conn, chanservSource, "Syntax: "+strings.ToUpper(string(level))+" <#channel> add|del|list [nick]")
		return
	}

	name, op := args[0], strings.ToLower(args[1])
	record, found, err := store.GetChannel(name)
	if err != nil || !found {
		serviceNotice(conn, chanservSource, ErrChanNotRegistered.Error())
		return
	}

	listPtr := chanservAccessListPtr(record, level)

	if op == "list" {
		if len(*listPtr) == 0 {
			serviceNotice(conn, chanservSource, strings.ToUpper(string(level))+" list for "+name+" is empty.")
			return
		}
		serviceNotice(conn, chanservSource, strings.ToUpper(string(level))+" list for "+name+": "+strings.Join(*listPtr, ", "))
		return
	}

	if !chanservCanManageAccess(record, user) {
		serviceNotice(conn, chanservSource, ErrAccessDenied.Error())
		return
	}
	if len(args) < 3 {
		serviceNotice(conn, chanservSource, "Syntax: "+strings.ToUpper(string(level))+" <#channel> add|del <nick>")
		return
	}
	targetNick := args[2]

	switch op {
	case "add":
		if nickStore := nickservStore(conn); nickStore != nil {
			targetRecord, found, err := nickStore.GetNick(targetNick)
			if err != nil || !found {
				serviceNotice(conn, chanservSource, ErrTargetNotRegistered.Error())
				return
			}
			if targetRecord.NoAccess {
				serviceNotice(conn, chanservSource, ErrNoAccessFlag.Error())
				return
			}
		}
		*listPtr = appendUnique(*listPtr, targetNick)
	case "del":
		*listPtr = removeNick(*listPtr, targetNick)
	default:
		serviceNotice(conn, chanservSource, "Syntax: "+strings.ToUpper(string(level))+" <#channel> add|del|list [nick]")
		return
	}

	chanservSetAccessListPtr(record, level, *listPtr)
	if err := store.PutChannel(record); err != nil {
		serviceNotice(conn, chanservSource, "Update failed, try again later.")
		return
	}
	serviceNotice(conn, chanservSource, strings.ToUpper(string(level))+" list for "+name+" updated.")
}

func chanservAccessListPtr(record *ChannelRecord, level ChanAccessLevel) *[]string {
	switch level {
	case AccessVop:
		return &record.VOP
	case AccessHop:
		return &record.HOP
	case AccessAop:
		return &record.AOP
	default:
		return &record.SOP
	}
}

func chanservSetAccessListPtr(record *ChannelRecord, level ChanAccessLevel, list []string) {
	switch level {
	case AccessVop:
		record.VOP = list
	case AccessHop:
		record.HOP = list
	case AccessAop:
		record.AOP = list
	default:
		record.SOP = list
	}
}

func appendUnique(list []string, nick string) []string {
	canon := CanonicalName(nick)
	for _, n := range list {
		if CanonicalName(n) == canon {
			return list
		}
	}
	return append(list, nick)
}

func removeNick(list []string, nick string) []string {
	canon := CanonicalName(nick)
	out := list[:0]
	for _, n := range list {
		if CanonicalName(n) != canon {
			out = append(out, n)
		}
	}
	return out
}

func chanservTransfer(conn *Conn, user *User, args []string) {
	store := chanservStore(conn)
	if store == nil {
		serviceNotice(conn, chanservSource, "Services are not available.")
		return
	}
	if len(args) < 2 {
		serviceNotice(conn, chanservSource, "Syntax: TRANSFER <#channel> <nick>")
		return
	}

	name, newFounder := args[0], args[1]
	record, found, err := store.GetChannel(name)
	if err != nil || !found {
		serviceNotice(conn, chanservSource, ErrChanNotRegistered.Error())
		return
	}
	if !strings.EqualFold(record.Founder, user.Nick()) && !user.Modes().IsLocalOper() {
		serviceNotice(conn, chanservSource, ErrNotChanFounder.Error())
		return
	}

	if nickStore := nickservStore(conn); nickStore != nil {
		if _, found, err := nickStore.GetNick(newFounder); err != nil || !found {
			serviceNotice(conn, chanservSource, ErrTargetNotRegistered.Error())
			return
		}
	}

	oldFounder := record.Founder
	record.Founder = newFounder
	if err := store.PutChannel(record); err != nil {
		serviceNotice(conn, chanservSource, "Transfer failed, try again later.")
		return
	}

	serviceNotice(conn, chanservSource, "Ownership of "+name+" transferred from "+oldFounder+" to "+newFounder+".")
	if target, ok := conn.server.State.LookupUser(newFounder); ok {
		if targetConn := target.Conn(); targetConn != nil {
			serviceNotice(targetConn, chanservSource, "You are now the founder of "+name+".")
		}
	}
}

func chanservTopic(conn *Conn, user *User, args []string) {
	store := chanservStore(conn)
	if store == nil {
		serviceNotice(conn, chanservSource, "Services are not available.")
		return
	}
	if len(args) < 2 {
		serviceNotice(conn, chanservSource, "Syntax: TOPIC <#channel> <text>")
		return
	}

	name := args[0]
	text := strings.Join(args[1:], " ")

	record, found, err := store.GetChannel(name)
	if err != nil || !found {
		serviceNotice(conn, chanservSource, ErrChanNotRegistered.Error())
		return
	}

	level := chanservAccessLevel(record, user)
	allowed := strings.EqualFold(record.Founder, user.Nick()) || user.Modes().IsLocalOper() ||
		level == AccessAop || level == AccessSop
	if !allowed {
		serviceNotice(conn, chanservSource, ErrAccessDenied.Error())
		return
	}

	channel, ok := conn.server.State.LookupChannel(name)
	if !ok {
		serviceNotice(conn, chanservSource, ErrNoSuchChan.Error())
		return
	}

	now := time.Now().Unix()
	channel.SetTopic(text, user.Source(), now)

	topicMsg := NewPooledMessage()
	topicMsg.Source = chanservSource
	topicMsg.Command = CmdTopic
	topicMsg.Params = []string{channel.Name()}
	topicMsg.WithTrailing(text)
	channel.Send(topicMsg, "")
	// Not recycled: fanned out to every member's write queue.

	serviceNotice(conn, chanservSource, "Topic for "+name+" set.")
}

func chanservMlock(conn *Conn, user *User, args []string) {
	store := chanservStore(conn)
	if store == nil {
		serviceNotice(conn, chanservSource, "Services are not available.")
		return
	}
	if len(args) < 2 {
		serviceNotice(conn, chanservSource, "Syntax: MLOCK <#channel> <+modes|-modes|off> [args...]")
		return
	}

	name, lockStr := args[0], args[1]
	record, found, err := store.GetChannel(name)
	if err != nil || !found {
		serviceNotice(conn, chanservSource, ErrChanNotRegistered.Error())
		return
	}
	if !strings.EqualFold(record.Founder, user.Nick()) && !user.Modes().IsLocalOper() {
		serviceNotice(conn, chanservSource, ErrNotChanFounder.Error())
		return
	}

	channel, ok := conn.server.State.LookupChannel(name)
	if !ok {
		serviceNotice(conn, chanservSource, ErrNoSuchChan.Error())
		return
	}

	if strings.EqualFold(lockStr, "off") {
		record.MLock = ""
		if err := store.PutChannel(record); err != nil {
			serviceNotice(conn, chanservSource, "Update failed, try again later.")
			return
		}
		serviceNotice(conn, chanservSource, "MLOCK cleared for "+name+".")
		return
	}

	for i := 0; i < len(lockStr); i++ {
		c := lockStr[i]
		if c == '+' || c == '-' {
			continue
		}
		if !strings.ContainsRune(mlockAllowedLetters, rune(c)) {
			serviceNotice(conn, chanservSource, "Invalid MLOCK flag: "+string(c))
			return
		}
	}

	if !strings.Contains(lockStr, "r") {
		if strings.HasPrefix(lockStr, "-") {
			lockStr = "+r" + lockStr
		} else {
			lockStr += "r"
		}
	}

	modeArgs := args[2:]
	modeStr, appliedArgs, err := channel.ApplyModes(lockStr, modeArgs)
	if err != nil {
		serviceNotice(conn, chanservSource, "MLOCK failed: "+err.Error())
		return
	}

	record.MLock = lockStr
	if err := store.PutChannel(record); err != nil {
		serviceNotice(conn, chanservSource, "Update failed, try again later.")
		return
	}

	if modeStr != "" {
		broadcastChannelMode(conn, channel, user, modeStr, appliedArgs)
	}
	serviceNotice(conn, chanservSource, "MLOCK set for "+name+".")
}

// broadcastChannelMode echoes a services-driven mode change to the
// channel, mirroring handleChannelMode's MODE echo in channel_handlers.go.
func broadcastChannelMode(conn *Conn, channel *Channel, user *User, modeStr string, modeArgs []string) {
	echo := NewPooledMessage()
	echo.Source = chanservSource
	echo.Command = CmdMode
	echo.Params = append([]string{channel.Name(), modeStr}, modeArgs...)
	channel.Send(echo, "")
	// Not recycled: fanned out to every member's write queue.
}

func chanservHelp(conn *Conn, args []string) {
	if len(args) > 0 {
		serviceNotice(conn, chanservSource, strings.ToUpper(args[0])+": see ChanServ subcommand documentation.")
		return
	}
	serviceNotice(conn, chanservSource, "ChanServ subcommands: REGISTER, DROP, INFO, VOP, HOP, AOP, SOP, TRANSFER, TOPIC, MLOCK, HELP")
}
