// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

const helpPlayback = `
p/SPACE play/pause
P       stop
,/.     step one frame back/forward
LEFT    seek -5 seconds
RIGHT   seek +5 seconds
[/]     slower/faster
-/=     volume down/volume up
m       mute
f       jump to the end
1/2     player/log page
Q       quit
`

const helpWindow = `
w       hide/show the video window
        (hiding mutes)

The playback keys also work
inside the video window.
`

const helpPageLog = `
newest lines on top
c       clear the log
`
