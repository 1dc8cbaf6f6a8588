/*
   Copyright (c) 2020, btnmasher
   All rights reserved.

   Redistribution and use in source and binary forms, with or without modification, are permitted provided that
   the following conditions are met:

   1. Redistributions of source code must retain the above copyright notice, this list of conditions and the
      following disclaimer.

   2. Redistributions in binary form must reproduce the above copyright notice, this list of conditions and
      the following disclaimer in the documentation and/or other materials provided with the distribution.

   3. Neither the name of the copyright holder nor the names of its contributors may be used to endorse or
      promote products derived from this software without specific prior written permission.

   THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED
   WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A
   PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE LIABLE FOR
   ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED
   TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION)
   HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
   NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
   POSSIBILITY OF SUCH DAMAGE.
*/

package ircd

// RFC 2812/1459 numerics, plus the IRCv3 SASL/ISUPPORT extensions this
// server advertises.
const (
	ReplyWelcome     uint16 = 001
	ReplyYourHost           = 002
	ReplyCreated            = 003
	ReplyMyInfo             = 004
	ReplyISupport           = 005
	ReplyUserModeIs         = 221
	ReplyStatsCommands      = 212
	ReplyEndOfStats         = 219
	ReplyAdminMe            = 256
	ReplyAdminLoc1          = 257
	ReplyAdminLoc2          = 258
	ReplyAdminEmail         = 259
	ReplyLuserClient        = 251
	ReplyLuserOp            = 252
	ReplyLuserUnknown       = 253
	ReplyLuserChannels      = 254
	ReplyLuserMe            = 255
	ReplyLocalUsers         = 265
	ReplyGlobalUsers        = 266
	ReplyAway               = 301
	ReplyUserHost           = 302
	ReplyIson               = 303
	ReplyUnAway             = 305
	ReplyNowAway            = 306
	ReplyWhoisRegNick       = 307
	ReplyWhoisUser          = 311
	ReplyWhoisServer        = 312
	ReplyWhoisOperator      = 313
	ReplyWhoWasUser         = 314
	ReplyEndOfWho           = 315
	ReplyWhoisIdle          = 317
	ReplyEndOfWhois         = 318
	ReplyWhoisChannels      = 319
	ReplyListStart          = 321
	ReplyList               = 322
	ReplyEndOfList          = 323
	ReplyNoTopic            = 331
	ReplyChanTopic          = 332
	ReplyTopicWhoTime       = 333
	ReplyInviting           = 341
	ReplyVersion            = 351
	ReplyWho                = 352
	ReplyNames              = 353
	ReplyLinks              = 364
	ReplyEndOfLinks         = 365
	ReplyEndOfNames         = 366
	ReplyEndOfWhoWas        = 369
	ReplyInfo               = 371
	ReplyMOTD               = 372
	ReplyEndOfInfo          = 374
	ReplyMOTDStart          = 375
	ReplyEndOfMOTD          = 376
	ReplyTime               = 391
	ReplyWhoisHost          = 378
	ReplyWhoisModes         = 379
	ReplyYoureOper          = 381
	ReplyNoSuchNick         = 401
	ReplyNoSuchServer       = 402
	ReplyNoSuchChannel      = 403
	ReplyCannotSendToChan   = 404
	ReplyTooManyChannels    = 405
	ReplyWasNoSuchNick      = 406
	ReplyUnknownCommand     = 421
	ReplyNoNicknameGiven    = 431
	ReplyErroneousNickname  = 432
	ReplyNicknameInUse      = 433
	ReplyNickCollision      = 436
	ReplyNotOnChannel       = 442
	ReplyNotRegistered      = 451
	ReplyNeedMoreParams     = 461
	ReplyAlreadyRegistered  = 462
	ReplyPasswordMismatch   = 464
	ReplyNickRegistered     = 465
	ReplyChannelIsFull      = 471
	ReplyUnknownMode        = 472
	ReplyInviteOnlyChan     = 473
	ReplyBannedFromChan     = 474
	ReplyBadChannelKey      = 475
	ReplyBadChannelMask     = 476
	ReplyNoPrivileges       = 481
	ReplyChanOpPrivsNeeded  = 482
	ReplyNoOperHost         = 491
	ReplyUmodeUnknownFlag   = 501
	ReplyInputTooLong       = 417
	ReplyMonOnline          = 730
	ReplyMonOffline         = 731
	ReplyMonList            = 732
	ReplyEndOfMonList       = 733
	ReplyLoggedIn           = 900
	ReplyLoggedOut          = 901
	ReplySaslSuccess        = 903
	ReplySaslFail           = 904
	ReplySaslTooLong        = 905
	ReplySaslAborted        = 906
	ReplySaslAlready        = 907
	ReplySaslMechs          = 908
	ReplyInvalidModeParam   = 696
)
